package refresh

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const recordFormatVersion = 1

// Record is the persisted state of one refresh session.
type Record struct {
	UserID    string
	CreatedAt int64
	ExpiresAt int64
}

func encodeRecord(r *Record) ([]byte, error) {
	if r.UserID == "" {
		return nil, errors.New("userID is required")
	}
	if len(r.UserID) > 255 {
		return nil, errors.New("userID too long")
	}

	var buf bytes.Buffer
	buf.Grow(2 + len(r.UserID) + 16)
	buf.WriteByte(recordFormatVersion)
	buf.WriteByte(byte(len(r.UserID)))
	buf.WriteString(r.UserID)
	if err := binary.Write(&buf, binary.BigEndian, r.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, r.ExpiresAt); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRecord(data []byte) (*Record, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != recordFormatVersion {
		return nil, errors.New("invalid refresh record version")
	}

	userLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if userLen == 0 {
		return nil, errors.New("empty userID")
	}
	user := make([]byte, userLen)
	if _, err := io.ReadFull(reader, user); err != nil {
		return nil, err
	}

	r := &Record{UserID: string(user)}
	if err := binary.Read(reader, binary.BigEndian, &r.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &r.ExpiresAt); err != nil {
		return nil, err
	}
	if reader.Len() != 0 {
		return nil, errors.New("trailing bytes in refresh record")
	}
	return r, nil
}
