package codec

import (
	"bytes"

	"github.com/pkg/errors"
	"github.com/valyala/bytebufferpool"
)

// CheckResult reports what Check accomplished on a single call.
type CheckResult int

const (
	// ResultLess means fewer bytes are buffered than the next frame
	// needs; the buffer was left untouched.
	ResultLess CheckResult = iota
	// ResultFull means at least one whole frame was detached and
	// enqueued.
	ResultFull
	// ResultErr means the buffered bytes can never form a valid frame
	// (bad magic or an implausible size); the connection should be
	// dropped.
	ResultErr
)

// ErrImplausibleSize is returned when a fixed header's size fields could
// never describe a valid frame on this connection.
var ErrImplausibleSize = errors.New("codec: implausible frame size")

// Check repeatedly peeks the fixed header at the front of buf. Each time a
// whole frame (data_frame_size bytes) is buffered, it is detached and sent
// on out as a pooled *bytebufferpool.ByteBuffer — the caller must return it
// with bytebufferpool.Put once done, mirroring the reference codebase's own
// buffer-pool discipline around its write path.
//
// maxPacketSize of 0 disables the upper bound.
func Check(buf *bytes.Buffer, maxPacketSize uint32, out chan<- *bytebufferpool.ByteBuffer) (CheckResult, error) {
	enqueued := false

	for {
		peek := buf.Bytes()
		if len(peek) < FixedHeaderSize {
			break
		}

		var fh FixedHeader
		if err := fh.Decode(peek); err != nil {
			return ResultErr, err
		}
		if !fh.ValidSize(maxPacketSize) {
			return ResultErr, errors.Wrapf(ErrImplausibleSize, "size=%d pb_header=%d max=%d",
				fh.DataFrameSize, fh.PBHeaderSize, maxPacketSize)
		}
		if uint32(len(peek)) < fh.DataFrameSize {
			break
		}

		bb := bytebufferpool.Get()
		bb.Write(peek[:fh.DataFrameSize])
		buf.Next(int(fh.DataFrameSize))

		out <- bb
		enqueued = true
	}

	if enqueued {
		return ResultFull, nil
	}
	return ResultLess, nil
}

// Meta is the routing-relevant subset of a frame's fixed header, exposed
// without paying for a full variable-header decode.
type Meta struct {
	DataFrameType   DataFrameType
	StreamFrameType StreamFrameType
	StreamID        uint32
}

// IsStream reports whether the frame belongs to the streaming subsystem.
func (m Meta) IsStream() bool {
	return m.DataFrameType == DataFrameStream
}

// PeekMeta decodes only the fixed header of an opaque frame buffer,
// exposing just enough to route it.
func PeekMeta(frame []byte) (Meta, error) {
	var fh FixedHeader
	if err := fh.Decode(frame); err != nil {
		return Meta{}, err
	}
	return Meta{
		DataFrameType:   fh.DataFrameType,
		StreamFrameType: fh.StreamFrameType,
		StreamID:        fh.StreamID,
	}, nil
}
