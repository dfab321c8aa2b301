package main

import (
	"github.com/c2h5oh/datasize"
)

// sizeValue is a pflag.Value accepting sizes such as "4096", "128KB" or "1MB".
type sizeValue struct {
	v *datasize.ByteSize
}

func newSizeValue(def datasize.ByteSize, p *datasize.ByteSize) *sizeValue {
	*p = def
	return &sizeValue{v: p}
}

func (s *sizeValue) Set(text string) error {
	return s.v.UnmarshalText([]byte(text))
}

func (s *sizeValue) String() string {
	if s.v == nil {
		return "0"
	}
	return s.v.String()
}

func (s *sizeValue) Type() string { return "size" }
