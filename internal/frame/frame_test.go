package frame

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestDecoder_Feed(t *testing.T) {
	tests := []struct {
		name  string
		chunk string
		want  []string
	}{
		{
			name:  "single line",
			chunk: "MSG,3,1,1,4840D6\n",
			want:  []string{"MSG,3,1,1,4840D6"},
		},
		{
			name:  "multiple lines",
			chunk: "MSG,1,A\nMSG,2,B\nMSG,3,C\n",
			want:  []string{"MSG,1,A", "MSG,2,B", "MSG,3,C"},
		},
		{
			name:  "crlf terminators",
			chunk: "MSG,1,A\r\nMSG,2,B\r\n",
			want:  []string{"MSG,1,A", "MSG,2,B"},
		},
		{
			name:  "no terminator yields nothing",
			chunk: "MSG,3,1,1",
			want:  nil,
		},
		{
			name:  "blank lines discarded",
			chunk: "\n\r\n   \nMSG,1,A\n",
			want:  []string{"MSG,1,A"},
		},
		{
			name:  "invalid utf-8 bytes dropped",
			chunk: "MSG,\xff\xfe3,A\n",
			want:  []string{"MSG,3,A"},
		},
		{
			name:  "empty chunk",
			chunk: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDecoder(0)
			got, err := d.Feed([]byte(tt.chunk))
			if err != nil {
				t.Fatalf("Feed() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Feed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecoder_PartialLineAcrossChunks(t *testing.T) {
	d := NewDecoder(0)

	lines, err := d.Feed([]byte("MSG,3,1,1,484"))
	if err != nil {
		t.Fatalf("Feed() error = %v", err)
	}
	if len(lines) != 0 {
		t.Fatalf("Expected no complete lines, got %v", lines)
	}
	if d.Buffered() != len("MSG,3,1,1,484") {
		t.Errorf("Buffered() = %d, want %d", d.Buffered(), len("MSG,3,1,1,484"))
	}

	lines, err = d.Feed([]byte("0D6\nMSG,4,"))
	if err != nil {
		t.Fatalf("Feed() error = %v", err)
	}
	if !reflect.DeepEqual(lines, []string{"MSG,3,1,1,4840D6"}) {
		t.Errorf("Feed() = %v, want [MSG,3,1,1,4840D6]", lines)
	}
	if d.Buffered() != len("MSG,4,") {
		t.Errorf("Buffered() = %d, want %d", d.Buffered(), len("MSG,4,"))
	}
}

func TestDecoder_SeparateReceivesInOrder(t *testing.T) {
	d := NewDecoder(0)

	first, err := d.Feed([]byte("MSG,3,1,1,A\n"))
	if err != nil {
		t.Fatalf("Feed() error = %v", err)
	}
	second, err := d.Feed([]byte("MSG,3,1,1,B\n"))
	if err != nil {
		t.Fatalf("Feed() error = %v", err)
	}

	got := append(first, second...)
	want := []string{"MSG,3,1,1,A", "MSG,3,1,1,B"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Lines = %v, want %v", got, want)
	}
}

// Feeding a stream in chunks must yield the same lines no matter where the
// chunk boundaries fall.
func TestDecoder_ChunkBoundaryIndependence(t *testing.T) {
	input := "MSG,3,1,1,4840D6,1,2023/01/01,12:00:00\r\n" +
		"SEL,,496,2286,4CA4E5,27215\n" +
		"\n" +
		"MSG,8,111,11111,ABC123,111111,35000,450\r\n" +
		"MSG,4,tail without newline"

	whole := NewDecoder(0)
	want, err := whole.Feed([]byte(input))
	if err != nil {
		t.Fatalf("Feed() error = %v", err)
	}

	for cut := 0; cut <= len(input); cut++ {
		d := NewDecoder(0)
		var got []string

		part, err := d.Feed([]byte(input[:cut]))
		if err != nil {
			t.Fatalf("cut %d: Feed() error = %v", cut, err)
		}
		got = append(got, part...)

		part, err = d.Feed([]byte(input[cut:]))
		if err != nil {
			t.Fatalf("cut %d: Feed() error = %v", cut, err)
		}
		got = append(got, part...)

		if !reflect.DeepEqual(got, want) {
			t.Errorf("cut %d: lines = %v, want %v", cut, got, want)
		}
		if d.Buffered() != whole.Buffered() {
			t.Errorf("cut %d: Buffered() = %d, want %d", cut, d.Buffered(), whole.Buffered())
		}
	}
}

func TestDecoder_LineTooLong(t *testing.T) {
	d := NewDecoder(16)

	lines, err := d.Feed([]byte("MSG,1,A\n" + strings.Repeat("x", 17)))
	if !errors.Is(err, ErrLineTooLong) {
		t.Fatalf("Feed() error = %v, want ErrLineTooLong", err)
	}
	if !reflect.DeepEqual(lines, []string{"MSG,1,A"}) {
		t.Errorf("Expected complete lines before overflow, got %v", lines)
	}

	// Recovery path: reset and continue with a fresh stream.
	d.Reset()
	if d.Buffered() != 0 {
		t.Fatalf("Buffered() after Reset = %d, want 0", d.Buffered())
	}
	lines, err = d.Feed([]byte("MSG,2,B\n"))
	if err != nil {
		t.Fatalf("Feed() after Reset error = %v", err)
	}
	if !reflect.DeepEqual(lines, []string{"MSG,2,B"}) {
		t.Errorf("Feed() after Reset = %v, want [MSG,2,B]", lines)
	}
}

func TestDecoder_MaxUnderCeilingAccepted(t *testing.T) {
	d := NewDecoder(32)

	long := strings.Repeat("a", 32)
	lines, err := d.Feed([]byte(long))
	if err != nil {
		t.Fatalf("Feed() at ceiling error = %v", err)
	}
	if len(lines) != 0 {
		t.Fatalf("Expected no lines yet, got %v", lines)
	}

	lines, err = d.Feed([]byte("\n"))
	if err != nil {
		t.Fatalf("Feed() error = %v", err)
	}
	if !reflect.DeepEqual(lines, []string{long}) {
		t.Errorf("Feed() = %v, want the buffered line", lines)
	}
}

func TestDecoder_Reset(t *testing.T) {
	d := NewDecoder(0)

	if _, err := d.Feed([]byte("partial line without newline")); err != nil {
		t.Fatalf("Feed() error = %v", err)
	}
	d.Reset()

	lines, err := d.Feed([]byte("MSG,1,A\n"))
	if err != nil {
		t.Fatalf("Feed() error = %v", err)
	}
	if !reflect.DeepEqual(lines, []string{"MSG,1,A"}) {
		t.Errorf("Expected stale remainder dropped, got %v", lines)
	}
}
