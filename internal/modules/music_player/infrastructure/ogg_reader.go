package infrastructure

import (
	"bufio"
	"bytes"
	"io"
)

const (
	oggHeaderSize     = 27
	oggMaxSegmentSize = 255
)

// oggReader splits an Ogg/Opus stream into Opus packets.
// OpusHead and OpusTags packets are skipped.
type oggReader struct {
	reader    *bufio.Reader
	header    []byte
	segBuf    []byte
	packetBuf bytes.Buffer
	queue     [][]byte
}

func newOggReader(r io.Reader) *oggReader {
	return &oggReader{
		reader: bufio.NewReaderSize(r, 16384),
		header: make([]byte, oggHeaderSize),
		segBuf: make([]byte, oggMaxSegmentSize),
	}
}

// ReadPacket returns the next audio packet. It returns io.EOF at the end of
// the stream, or io.ErrUnexpectedEOF if the stream is cut mid-page.
func (r *oggReader) ReadPacket() ([]byte, error) {
	for len(r.queue) == 0 {
		if err := r.readPage(); err != nil {
			return nil, err
		}
	}

	packet := r.queue[0]
	r.queue = r.queue[1:]
	return packet, nil
}

func (r *oggReader) readPage() error {
	// Resynchronise on the capture pattern.
	for {
		sig, err := r.reader.Peek(4)
		if err != nil {
			if err == io.EOF && len(sig) > 0 {
				return io.EOF
			}
			return err
		}
		if string(sig) == "OggS" {
			break
		}
		_, _ = r.reader.Discard(1)
	}

	if _, err := io.ReadFull(r.reader, r.header); err != nil {
		return unexpected(err)
	}

	numSegs := int(r.header[26])
	segTable := r.segBuf[:numSegs]
	if _, err := io.ReadFull(r.reader, segTable); err != nil {
		return unexpected(err)
	}

	for _, segLen := range segTable {
		l := int(segLen)
		if _, err := io.CopyN(&r.packetBuf, r.reader, int64(l)); err != nil {
			return unexpected(err)
		}

		// A segment shorter than 255 bytes terminates the packet; otherwise
		// the packet continues, possibly on the next page.
		if l < oggMaxSegmentSize {
			payload := r.packetBuf.Bytes()
			packet := make([]byte, len(payload))
			copy(packet, payload)
			r.packetBuf.Reset()

			if isOpusMetadata(packet) {
				continue
			}
			r.queue = append(r.queue, packet)
		}
	}

	return nil
}

func isOpusMetadata(packet []byte) bool {
	if len(packet) < 8 {
		return false
	}
	magic := string(packet[:8])
	return magic == "OpusHead" || magic == "OpusTags"
}

func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
