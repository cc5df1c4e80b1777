package migrations

import (
	"database/sql"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestNew(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock DB: %v", err)
	}
	defer db.Close()

	migrator := New(db)
	if migrator == nil {
		t.Fatal("Expected migrator to be created, got nil")
	}
	if migrator.db != db {
		t.Error("Expected migrator to have the provided DB connection")
	}
}

func TestAll(t *testing.T) {
	all := All()
	if len(all) != 2 {
		t.Fatalf("Expected 2 migrations, got %d", len(all))
	}

	if all[0].Name != "001_capture_schema" {
		t.Errorf("Expected first migration 001_capture_schema, got %s", all[0].Name)
	}
	if all[1].Name != "002_capture_indexes" {
		t.Errorf("Expected second migration 002_capture_indexes, got %s", all[1].Name)
	}

	for _, m := range all {
		if strings.TrimSpace(m.UpSQL) == "" {
			t.Errorf("Migration %s has empty UpSQL", m.Name)
		}
		if strings.TrimSpace(m.DownSQL) == "" {
			t.Errorf("Migration %s has empty DownSQL", m.Name)
		}
	}
}

func TestCaptureSchema_Tables(t *testing.T) {
	for _, table := range []string{"sbs_messages", "sbs_raw_messages"} {
		if !strings.Contains(CaptureSchema.UpSQL, table) {
			t.Errorf("Expected UpSQL to create %s", table)
		}
		if !strings.Contains(CaptureSchema.DownSQL, table) {
			t.Errorf("Expected DownSQL to drop %s", table)
		}
	}
}

func TestMigratorInitialize(t *testing.T) {
	tests := []struct {
		name        string
		setupMock   func(sqlmock.Sqlmock)
		expectError bool
	}{
		{
			name: "successful initialization",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`CREATE TABLE IF NOT EXISTS migrations`).
					WillReturnResult(sqlmock.NewResult(1, 1))
			},
			expectError: false,
		},
		{
			name: "database error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`CREATE TABLE IF NOT EXISTS migrations`).
					WillReturnError(sql.ErrConnDone)
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("Failed to create mock DB: %v", err)
			}
			defer db.Close()

			tt.setupMock(mock)

			migrator := New(db)
			err = migrator.Initialize()

			if tt.expectError && err == nil {
				t.Error("Expected error, got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Expected no error, got: %v", err)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("Unmet expectations: %v", err)
			}
		})
	}
}

func TestMigratorGetAppliedMigrations(t *testing.T) {
	tests := []struct {
		name          string
		setupMock     func(sqlmock.Sqlmock)
		expectError   bool
		expectedNames []string
	}{
		{
			name: "no applied migrations",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"name"})
				mock.ExpectQuery(`SELECT name FROM migrations ORDER BY id`).
					WillReturnRows(rows)
			},
		},
		{
			name: "multiple applied migrations",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"name"}).
					AddRow("001_capture_schema").
					AddRow("002_capture_indexes")
				mock.ExpectQuery(`SELECT name FROM migrations ORDER BY id`).
					WillReturnRows(rows)
			},
			expectedNames: []string{"001_capture_schema", "002_capture_indexes"},
		},
		{
			name: "database query error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT name FROM migrations ORDER BY id`).
					WillReturnError(sql.ErrConnDone)
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("Failed to create mock DB: %v", err)
			}
			defer db.Close()

			tt.setupMock(mock)

			migrator := New(db)
			applied, err := migrator.GetAppliedMigrations()

			if tt.expectError && err == nil {
				t.Error("Expected error, got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Expected no error, got: %v", err)
			}

			if !tt.expectError {
				if len(applied) != len(tt.expectedNames) {
					t.Errorf("Expected %d applied migrations, got %d", len(tt.expectedNames), len(applied))
				}
				for _, name := range tt.expectedNames {
					if !applied[name] {
						t.Errorf("Expected migration %s to be applied", name)
					}
				}
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("Unmet expectations: %v", err)
			}
		})
	}
}

func TestMigratorApplyMigration(t *testing.T) {
	migration := &Migration{
		ID:      "test_migration",
		Name:    "test_migration",
		UpSQL:   "CREATE TABLE test (id INTEGER);",
		DownSQL: "DROP TABLE test;",
	}

	tests := []struct {
		name        string
		setupMock   func(sqlmock.Sqlmock)
		expectError bool
	}{
		{
			name: "successful migration application",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`CREATE TABLE test`).
					WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectExec(`INSERT INTO migrations`).
					WithArgs("test_migration").
					WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectCommit()
			},
			expectError: false,
		},
		{
			name: "begin transaction error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin().WillReturnError(sql.ErrConnDone)
			},
			expectError: true,
		},
		{
			name: "migration execution error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`CREATE TABLE test`).
					WillReturnError(sql.ErrConnDone)
				mock.ExpectRollback()
			},
			expectError: true,
		},
		{
			name: "record migration error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`CREATE TABLE test`).
					WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectExec(`INSERT INTO migrations`).
					WithArgs("test_migration").
					WillReturnError(sql.ErrConnDone)
				mock.ExpectRollback()
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("Failed to create mock DB: %v", err)
			}
			defer db.Close()

			tt.setupMock(mock)

			migrator := New(db)
			err = migrator.ApplyMigration(migration)

			if tt.expectError && err == nil {
				t.Error("Expected error, got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Expected no error, got: %v", err)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("Unmet expectations: %v", err)
			}
		})
	}
}

func TestMigratorRollbackMigration(t *testing.T) {
	migration := &Migration{
		ID:      "test_migration",
		Name:    "test_migration",
		UpSQL:   "CREATE TABLE test (id INTEGER);",
		DownSQL: "DROP TABLE test;",
	}

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock DB: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DROP TABLE test`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`DELETE FROM migrations WHERE name`).
		WithArgs("test_migration").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	migrator := New(db)
	if err := migrator.RollbackMigration(migration); err != nil {
		t.Errorf("RollbackMigration() failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestMigratorMigrate_SkipsApplied(t *testing.T) {
	migrationList := []*Migration{
		{
			ID:      "001_test",
			Name:    "001_test",
			UpSQL:   "CREATE TABLE test1 (id INTEGER);",
			DownSQL: "DROP TABLE test1;",
		},
		{
			ID:      "002_test",
			Name:    "002_test",
			UpSQL:   "CREATE TABLE test2 (id INTEGER);",
			DownSQL: "DROP TABLE test2;",
		},
	}

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock DB: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS migrations`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	// First migration already applied; only the second should run.
	rows := sqlmock.NewRows([]string{"name"}).AddRow("001_test")
	mock.ExpectQuery(`SELECT name FROM migrations ORDER BY id`).
		WillReturnRows(rows)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE test2`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO migrations`).
		WithArgs("002_test").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	migrator := New(db)
	if err := migrator.Migrate(migrationList); err != nil {
		t.Errorf("Migrate() failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestMigratorRollback_LastApplied(t *testing.T) {
	migrationList := []*Migration{
		{
			ID:      "001_test",
			Name:    "001_test",
			UpSQL:   "CREATE TABLE test1 (id INTEGER);",
			DownSQL: "DROP TABLE test1;",
		},
		{
			ID:      "002_test",
			Name:    "002_test",
			UpSQL:   "CREATE TABLE test2 (id INTEGER);",
			DownSQL: "DROP TABLE test2;",
		},
	}

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock DB: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"name"}).
		AddRow("001_test").
		AddRow("002_test")
	mock.ExpectQuery(`SELECT name FROM migrations ORDER BY id`).
		WillReturnRows(rows)

	mock.ExpectBegin()
	mock.ExpectExec(`DROP TABLE test2`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`DELETE FROM migrations WHERE name`).
		WithArgs("002_test").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	migrator := New(db)
	if err := migrator.Rollback(migrationList); err != nil {
		t.Errorf("Rollback() failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestMigratorRollback_NothingApplied(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock DB: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"name"})
	mock.ExpectQuery(`SELECT name FROM migrations ORDER BY id`).
		WillReturnRows(rows)

	migrator := New(db)
	if err := migrator.Rollback(All()); err == nil {
		t.Error("Rollback() should fail when nothing has been applied")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}
