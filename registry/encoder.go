package registry

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const (
	claimFormatVersionCurrent = 2
	claimFormatVersionV1      = 1
)

// CurrentSchemaVersion is the claim blob format written by Encode.
const CurrentSchemaVersion = claimFormatVersionCurrent

// Encode serializes a Claim into the versioned binary blob stored in Redis.
//
// Layout (v2): version byte, length-prefixed user ID, length-prefixed
// device ID, claimed-at int64 BE, last-seen int64 BE. The last-seen field
// is always the final 8 bytes of the blob so the touch script can rewrite
// it in place without parsing the variable-length prefix.
func Encode(c *Claim) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(claimFormatVersionCurrent)

	if len(c.UserID) > 255 {
		return nil, errors.New("userID too long")
	}
	buf.WriteByte(byte(len(c.UserID)))
	buf.WriteString(c.UserID)

	if len(c.DeviceID) > 255 {
		return nil, errors.New("deviceID too long")
	}
	buf.WriteByte(byte(len(c.DeviceID)))
	buf.WriteString(c.DeviceID)

	if err := binary.Write(&buf, binary.BigEndian, c.ClaimedAt); err != nil {
		return nil, err
	}

	if err := binary.Write(&buf, binary.BigEndian, c.LastSeenAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses a claim blob. Both the current format and the v1 format
// (no claimed-at field) are accepted; v1 blobs report ClaimedAt equal to
// LastSeenAt.
func Decode(data []byte) (*Claim, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != claimFormatVersionCurrent && version != claimFormatVersionV1 {
		return nil, errors.New("invalid claim version")
	}

	c := &Claim{SchemaVersion: version}

	userLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	userID := make([]byte, userLen)
	if _, err := io.ReadFull(reader, userID); err != nil {
		return nil, err
	}
	c.UserID = string(userID)

	deviceLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	deviceID := make([]byte, deviceLen)
	if _, err := io.ReadFull(reader, deviceID); err != nil {
		return nil, err
	}
	c.DeviceID = string(deviceID)

	if version == claimFormatVersionCurrent {
		if err := binary.Read(reader, binary.BigEndian, &c.ClaimedAt); err != nil {
			return nil, err
		}
	}

	if err := binary.Read(reader, binary.BigEndian, &c.LastSeenAt); err != nil {
		return nil, err
	}
	if version == claimFormatVersionV1 {
		c.ClaimedAt = c.LastSeenAt
	}

	if reader.Len() != 0 {
		return nil, errors.New("trailing bytes in claim blob")
	}

	return c, nil
}
