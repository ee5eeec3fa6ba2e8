package protoutils

import (
	"bufio"
	"encoding/binary"
	"io"
	"iter"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/proto"
)

// maxMessageSize bounds a single record; proto messages cannot exceed 2 GiB.
const maxMessageSize = 1 << 31

// DelimitedProtoWriter writes proto messages to an [io.Writer], each one prefixed by its little endian
// uint32 size, so that a stream of scene snapshots can be read back one message at a time.
type DelimitedProtoWriter[M proto.Message] struct {
	writer io.Writer
	header [4]byte
}

// NewDelimitedProtoWriter creates a [DelimitedProtoWriter].
func NewDelimitedProtoWriter[M proto.Message](writer io.Writer) *DelimitedProtoWriter[M] {
	return &DelimitedProtoWriter[M]{writer: writer}
}

// Append marshals message and writes it.
func (o *DelimitedProtoWriter[M]) Append(message M) error {
	data, err := proto.Marshal(message)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(o.header[:], uint32(len(data)))
	if _, err := o.writer.Write(o.header[:]); err != nil {
		return err
	}
	_, err = o.writer.Write(data)
	return err
}

// Close closes the underlying writer if it is an [io.Closer].
func (o *DelimitedProtoWriter[_]) Close() error {
	if closer, ok := o.writer.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// ReadDelimitedProtos iterates over the messages written by a [DelimitedProtoWriter]. Each message is
// freshly allocated. Iteration stops at the first error, which is yielded with a nil message; a
// truncated trailing record is an error.
func ReadDelimitedProtos[T any, M interface {
	*T
	proto.Message
}](reader io.Reader) iter.Seq2[M, error] {
	return func(yield func(M, error) bool) {
		br := bufio.NewReader(reader)
		var header [4]byte
		for index := 0; ; index++ {
			if _, err := io.ReadFull(br, header[:]); err != nil {
				if errors.Is(err, io.EOF) {
					return
				}
				yield(nil, errors.Wrapf(err, "record %d header", index))
				return
			}
			size := binary.LittleEndian.Uint32(header[:])
			if uint64(size) >= maxMessageSize {
				yield(nil, errors.Errorf("record %d is too large (%d bytes)", index, size))
				return
			}
			data := make([]byte, size)
			if _, err := io.ReadFull(br, data); err != nil {
				yield(nil, errors.Wrapf(err, "record %d body", index))
				return
			}
			message := M(new(T))
			if err := proto.Unmarshal(data, message); err != nil {
				yield(nil, errors.Wrapf(err, "record %d", index))
				return
			}
			if !yield(message, nil) {
				return
			}
		}
	}
}
