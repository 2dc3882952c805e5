package bundle

import (
	"archive/zip"
	"errors"
	"io"

	"github.com/klauspost/compress/flate"
)

// NewZipWriter returns a zip writer whose deflate entries are compressed by
// klauspost/compress at the best compression level.
func NewZipWriter(w io.Writer) *zip.Writer {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})
	return zw
}

// OpenZip opens an archive for reading with the klauspost inflater
// registered. Archives with unsafe entry names are still opened; callers
// filter entries through EntryTarget.
func OpenZip(path string) (*zip.ReadCloser, error) {
	zr, err := zip.OpenReader(path)
	if err != nil && !(errors.Is(err, zip.ErrInsecurePath) && zr != nil) {
		return nil, err
	}
	zr.RegisterDecompressor(zip.Deflate, flate.NewReader)
	return zr, nil
}
