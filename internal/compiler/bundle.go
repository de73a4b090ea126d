package compiler

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/funvibe/funforth/internal/code"
)

func init() {
	// Register item variants for gob serialization
	gob.Register(&code.Op{})
	gob.Register(&code.Int{})
	gob.Register(&code.Float{})
	gob.Register(&code.Str{})
	gob.Register(&code.Bool{})
}

// Bundle is a linked program in storable form
type Bundle struct {
	// Program is the fully linked item sequence
	Program []code.Item

	// Source names where the program came from (for error messages)
	Source string
}

// bundleMagic identifies a serialized funforth program
var bundleMagic = [4]byte{'F', 'N', 'F', 'B'}

const bundleVersion byte = 0x01

// Serialize converts a bundle to binary format.
// Format:
// - Magic number (4 bytes): "FNFB"
// - Version (1 byte): 0x01
// - Gob-encoded bundle data
func (b *Bundle) Serialize() ([]byte, error) {
	buf := new(bytes.Buffer)

	buf.Write(bundleMagic[:])
	buf.WriteByte(bundleVersion)

	enc := gob.NewEncoder(buf)
	if err := enc.Encode(b); err != nil {
		return nil, fmt.Errorf("bundle gob encoding failed: %w", err)
	}
	return buf.Bytes(), nil
}

// Deserialize reads a serialized bundle back
func Deserialize(data []byte) (*Bundle, error) {
	if len(data) < 5 || !bytes.Equal(data[:4], bundleMagic[:]) {
		return nil, fmt.Errorf("not a funforth bundle")
	}
	if data[4] != bundleVersion {
		return nil, fmt.Errorf("unsupported bundle version 0x%02x", data[4])
	}

	var b Bundle
	dec := gob.NewDecoder(bytes.NewReader(data[5:]))
	if err := dec.Decode(&b); err != nil {
		return nil, fmt.Errorf("bundle gob decoding failed: %w", err)
	}
	return &b, nil
}
