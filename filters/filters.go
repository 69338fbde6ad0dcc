// Package filters decodes PDF stream filters. FlateDecode covers the
// streams this tool must read (cross-reference and object streams);
// PNG predictors are handled because xref streams almost always use
// Predictor 12.
package filters

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"fmt"
	"io"

	"github.com/mkoehler/duplexnum/core"
)

// Decode runs the stream's /Filter chain over its raw data and returns
// the decoded bytes. Streams without a filter are returned as-is.
func Decode(s *core.Stream) ([]byte, error) {
	names, parms, err := filterChain(s.Dict)
	if err != nil {
		return nil, err
	}
	data := s.Raw
	for i, name := range names {
		var p core.Dict
		if i < len(parms) {
			p = parms[i]
		}
		switch name {
		case "FlateDecode", "Fl":
			data, err = flateDecode(data)
			if err != nil {
				return nil, fmt.Errorf("FlateDecode: %w", err)
			}
			data, err = applyPredictor(data, p)
			if err != nil {
				return nil, fmt.Errorf("FlateDecode predictor: %w", err)
			}
		case "ASCIIHexDecode", "AHx":
			data, err = asciiHexDecode(data)
			if err != nil {
				return nil, fmt.Errorf("ASCIIHexDecode: %w", err)
			}
		default:
			return nil, fmt.Errorf("unsupported filter %q", name)
		}
	}
	return data, nil
}

// filterChain normalizes /Filter and /DecodeParms, which may each be a
// single entry or an array.
func filterChain(dict core.Dict) ([]core.Name, []core.Dict, error) {
	var names []core.Name
	switch f := dict["Filter"].(type) {
	case nil:
	case core.Name:
		names = []core.Name{f}
	case core.Array:
		for _, o := range f {
			n, ok := o.(core.Name)
			if !ok {
				return nil, nil, fmt.Errorf("non-name entry in /Filter array")
			}
			names = append(names, n)
		}
	default:
		return nil, nil, fmt.Errorf("unexpected /Filter type %T", f)
	}

	var parms []core.Dict
	switch p := dict["DecodeParms"].(type) {
	case nil:
	case core.Dict:
		parms = []core.Dict{p}
	case core.Array:
		for _, o := range p {
			d, _ := o.(core.Dict) // null is allowed, leaves a nil entry
			parms = append(parms, d)
		}
	}
	return names, parms, nil
}

// flateDecode inflates zlib-wrapped data, falling back to raw deflate
// for producers that omit the zlib header.
func flateDecode(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err == nil {
		defer zr.Close()
		out, rerr := io.ReadAll(zr)
		if rerr == nil || (rerr == io.ErrUnexpectedEOF && len(out) > 0) {
			return out, nil
		}
		return nil, rerr
	}
	fr := flate.NewReader(bytes.NewReader(data))
	defer fr.Close()
	out, rerr := io.ReadAll(fr)
	if rerr != nil {
		return nil, fmt.Errorf("neither zlib nor raw deflate: %w", rerr)
	}
	return out, nil
}

func asciiHexDecode(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data)/2)
	var hi byte
	haveHi := false
	for _, c := range data {
		if c == '>' {
			break
		}
		switch {
		case c == 0x00 || c == 0x09 || c == 0x0A || c == 0x0C || c == 0x0D || c == 0x20:
			continue
		case c >= '0' && c <= '9':
			c -= '0'
		case c >= 'A' && c <= 'F':
			c = c - 'A' + 10
		case c >= 'a' && c <= 'f':
			c = c - 'a' + 10
		default:
			return nil, fmt.Errorf("invalid hex digit %q", c)
		}
		if haveHi {
			out = append(out, hi<<4|c)
			haveHi = false
		} else {
			hi = c
			haveHi = true
		}
	}
	if haveHi {
		out = append(out, hi<<4)
	}
	return out, nil
}

// applyPredictor undoes the PNG row predictors (Predictor >= 10) or
// returns the data unchanged for Predictor 1/absent. TIFF Predictor 2
// is not produced by the encoders this tool meets.
func applyPredictor(data []byte, parms core.Dict) ([]byte, error) {
	predictor := int64(1)
	colors := int64(1)
	bpc := int64(8)
	columns := int64(1)
	if parms != nil {
		if v, ok := parms.GetInt("Predictor"); ok {
			predictor = v
		}
		if v, ok := parms.GetInt("Colors"); ok {
			colors = v
		}
		if v, ok := parms.GetInt("BitsPerComponent"); ok {
			bpc = v
		}
		if v, ok := parms.GetInt("Columns"); ok {
			columns = v
		}
	}
	if predictor == 1 {
		return data, nil
	}
	if predictor < 10 {
		return nil, fmt.Errorf("unsupported predictor %d", predictor)
	}
	bytesPerPixel := int((colors*bpc + 7) / 8)
	if bytesPerPixel < 1 {
		bytesPerPixel = 1
	}
	rowLen := int((colors*bpc*columns + 7) / 8)
	if rowLen <= 0 {
		return nil, fmt.Errorf("invalid predictor row length")
	}
	stride := rowLen + 1 // one filter-type byte per row
	if len(data)%stride != 0 {
		return nil, fmt.Errorf("predictor data length %d not a multiple of row stride %d", len(data), stride)
	}
	rows := len(data) / stride
	out := make([]byte, 0, rows*rowLen)
	prev := make([]byte, rowLen)
	cur := make([]byte, rowLen)
	for r := 0; r < rows; r++ {
		ft := data[r*stride]
		copy(cur, data[r*stride+1:(r+1)*stride])
		switch ft {
		case 0: // None
		case 1: // Sub
			for i := bytesPerPixel; i < rowLen; i++ {
				cur[i] += cur[i-bytesPerPixel]
			}
		case 2: // Up
			for i := 0; i < rowLen; i++ {
				cur[i] += prev[i]
			}
		case 3: // Average
			for i := 0; i < rowLen; i++ {
				left := 0
				if i >= bytesPerPixel {
					left = int(cur[i-bytesPerPixel])
				}
				cur[i] += byte((left + int(prev[i])) / 2)
			}
		case 4: // Paeth
			for i := 0; i < rowLen; i++ {
				var left, upLeft byte
				if i >= bytesPerPixel {
					left = cur[i-bytesPerPixel]
					upLeft = prev[i-bytesPerPixel]
				}
				cur[i] += paeth(left, prev[i], upLeft)
			}
		default:
			return nil, fmt.Errorf("unknown PNG filter type %d in row %d", ft, r)
		}
		out = append(out, cur...)
		prev, cur = cur, prev
	}
	return out, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa := abs(p - int(a))
	pb := abs(p - int(b))
	pc := abs(p - int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
