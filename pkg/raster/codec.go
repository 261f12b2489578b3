package raster

import (
	"bufio"
	"bytes"
	"compress/flate"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
)

// File layout: magic, uint32 header length, JSON header, then the samples
// deflate-compressed in little-endian row-major order.
var magic = []byte("VSR1")

var ErrFormat = errors.New("raster: invalid file format")

type header struct {
	Width     int        `json:"width"`
	Height    int        `json:"height"`
	DType     string     `json:"dtype"`
	NoData    float64    `json:"nodata"`
	NoDataNaN bool       `json:"nodata_nan,omitempty"`
	Transform [6]float64 `json:"transform"`
	SRID      int        `json:"srid,omitempty"`
}

func parseDType(s string) (DType, error) {
	switch s {
	case "float32":
		return Float32, nil
	case "uint32":
		return UInt32, nil
	case "uint8":
		return UInt8, nil
	}
	return 0, fmt.Errorf("%w: unknown dtype %q", ErrFormat, s)
}

// Encode writes r to w.
func Encode(w io.Writer, r *Raster) error {
	if len(r.Data) != r.Width*r.Height {
		return fmt.Errorf("raster: %d samples for %dx%d grid", len(r.Data), r.Width, r.Height)
	}
	h := header{
		Width:  r.Width,
		Height: r.Height,
		DType:  r.DType.String(),
		NoData: r.NoData,
		Transform: [6]float64{
			r.Transform.A, r.Transform.B, r.Transform.C,
			r.Transform.D, r.Transform.E, r.Transform.F,
		},
		SRID: r.SRID,
	}
	if math.IsNaN(r.NoData) {
		h.NoData = 0
		h.NoDataNaN = true
	}
	hdr, err := json.Marshal(h)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(magic); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(hdr))); err != nil {
		return err
	}
	if _, err := bw.Write(hdr); err != nil {
		return err
	}

	zw, err := flate.NewWriter(bw, flate.DefaultCompression)
	if err != nil {
		return err
	}
	buf := make([]byte, 4)
	for _, v := range r.Data {
		switch r.DType {
		case Float32:
			binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(v)))
			_, err = zw.Write(buf)
		case UInt32:
			binary.LittleEndian.PutUint32(buf, uint32(v))
			_, err = zw.Write(buf)
		case UInt8:
			_, err = zw.Write([]byte{uint8(v)})
		default:
			return fmt.Errorf("raster: cannot encode dtype %v", r.DType)
		}
		if err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return err
	}
	return bw.Flush()
}

// Decode reads a raster written by Encode.
func Decode(rd io.Reader) (*Raster, error) {
	br := bufio.NewReader(rd)
	m := make([]byte, len(magic))
	if _, err := io.ReadFull(br, m); err != nil || !bytes.Equal(m, magic) {
		return nil, ErrFormat
	}
	var n uint32
	if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFormat, err)
	}
	hdr := make([]byte, n)
	if _, err := io.ReadFull(br, hdr); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFormat, err)
	}
	var h header
	if err := json.Unmarshal(hdr, &h); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFormat, err)
	}
	dtype, err := parseDType(h.DType)
	if err != nil {
		return nil, err
	}

	r := &Raster{
		Width:  h.Width,
		Height: h.Height,
		Data:   make([]float64, h.Width*h.Height),
		NoData: h.NoData,
		DType:  dtype,
		Transform: Transform{
			A: h.Transform[0], B: h.Transform[1], C: h.Transform[2],
			D: h.Transform[3], E: h.Transform[4], F: h.Transform[5],
		},
		SRID: h.SRID,
	}
	if h.NoDataNaN {
		r.NoData = math.NaN()
	}

	zr := flate.NewReader(br)
	defer zr.Close()
	size := 4
	if dtype == UInt8 {
		size = 1
	}
	buf := make([]byte, size)
	for i := range r.Data {
		if _, err := io.ReadFull(zr, buf); err != nil {
			return nil, fmt.Errorf("%w: sample %d: %s", ErrFormat, i, err)
		}
		switch dtype {
		case Float32:
			r.Data[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf)))
		case UInt32:
			r.Data[i] = float64(binary.LittleEndian.Uint32(buf))
		case UInt8:
			r.Data[i] = float64(buf[0])
		}
	}
	return r, nil
}
