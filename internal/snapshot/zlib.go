package snapshot

import (
	"bytes"
	"compress/zlib"
	"io"
)

// zlibInflateAll fully decompresses a zlib stream, used by SZX's RAMP
// chunk compression (spec §4.9).
func zlibInflateAll(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
