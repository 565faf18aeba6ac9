package infrastructure

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

// oggPage builds a single Ogg page carrying the given packets. Packets longer
// than 254 bytes are laced across several segments.
func oggPage(packets ...[]byte) []byte {
	var segments []byte
	var body []byte
	for _, p := range packets {
		n := len(p)
		for n >= 255 {
			segments = append(segments, 255)
			n -= 255
		}
		segments = append(segments, byte(n))
		body = append(body, p...)
	}

	header := make([]byte, oggHeaderSize)
	copy(header, "OggS")
	header[26] = byte(len(segments))

	page := append(header, segments...)
	return append(page, body...)
}

func oggStream(packets ...[]byte) []byte {
	var buf bytes.Buffer
	buf.Write(oggPage([]byte("OpusHead\x01\x02")))
	buf.Write(oggPage([]byte("OpusTags vendor")))
	for _, p := range packets {
		buf.Write(oggPage(p))
	}
	return buf.Bytes()
}

func readAllPackets(t *testing.T, r *oggReader) ([][]byte, error) {
	t.Helper()

	var packets [][]byte
	for {
		p, err := r.ReadPacket()
		if err != nil {
			return packets, err
		}
		packets = append(packets, p)
	}
}

func TestOggReader_ReadPacket(t *testing.T) {
	long := bytes.Repeat([]byte{0xAB}, 600)

	tests := []struct {
		name    string
		input   []byte
		want    [][]byte
		wantErr error
	}{
		{
			name:    "skips metadata packets",
			input:   oggStream([]byte{1, 2, 3}, []byte{4, 5}),
			want:    [][]byte{{1, 2, 3}, {4, 5}},
			wantErr: io.EOF,
		},
		{
			name:    "joins laced segments",
			input:   oggStream(long),
			want:    [][]byte{long},
			wantErr: io.EOF,
		},
		{
			name:    "several packets on one page",
			input:   oggPage([]byte{1}, []byte{2}, []byte{3}),
			want:    [][]byte{{1}, {2}, {3}},
			wantErr: io.EOF,
		},
		{
			name:    "resynchronises after garbage",
			input:   append([]byte("garbage"), oggPage([]byte{9})...),
			want:    [][]byte{{9}},
			wantErr: io.EOF,
		},
		{
			name:    "truncated page",
			input:   oggPage([]byte{1, 2, 3, 4})[:oggHeaderSize+2],
			wantErr: io.ErrUnexpectedEOF,
		},
		{
			name:    "empty stream",
			input:   nil,
			wantErr: io.EOF,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readAllPackets(t, newOggReader(bytes.NewReader(tt.input)))

			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d packets, got %d", len(tt.want), len(got))
			}
			for i := range got {
				if !bytes.Equal(got[i], tt.want[i]) {
					t.Errorf("packet %d: expected %v, got %v", i, tt.want[i], got[i])
				}
			}
		})
	}
}
