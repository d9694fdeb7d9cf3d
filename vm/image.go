package vm

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ---------------------------------------------------------------------------
// Program images: compiled programs persisted as canonical CBOR
// ---------------------------------------------------------------------------

const (
	imageMagic   = "SBIMG"
	imageVersion = 1
)

type image struct {
	Magic   string   `cbor:"1,keyasint"`
	Version int      `cbor:"2,keyasint"`
	Program *Program `cbor:"3,keyasint"`
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalProgram serializes a program image. Equal programs encode to equal
// bytes.
func MarshalProgram(p *Program) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("vm: marshal program: %w", err)
	}
	return cborEncMode.Marshal(&image{Magic: imageMagic, Version: imageVersion, Program: p})
}

// UnmarshalProgram decodes and validates a program image.
func UnmarshalProgram(data []byte) (*Program, error) {
	var img image
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("vm: unmarshal program: %w", err)
	}
	if img.Magic != imageMagic {
		return nil, fmt.Errorf("vm: unmarshal program: not a program image")
	}
	if img.Version != imageVersion {
		return nil, fmt.Errorf("vm: unmarshal program: unsupported image version %d", img.Version)
	}
	if img.Program == nil {
		return nil, fmt.Errorf("vm: unmarshal program: image has no program")
	}
	if img.Program.SubModules == nil {
		img.Program.SubModules = map[string]*Module{}
	}
	if err := img.Program.Validate(); err != nil {
		return nil, fmt.Errorf("vm: unmarshal program: %w", err)
	}
	return img.Program, nil
}
