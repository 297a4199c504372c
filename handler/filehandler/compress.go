package filehandler

import (
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/multierr"
)

const zstdExt = ".zst"

// compressFile writes name+".zst" and removes name. A partial output is
// removed on failure.
func compressFile(name string) (err error) {
	in, err := os.Open(name)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(name+zstdExt, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			os.Remove(out.Name())
		}
	}()

	enc, err := zstd.NewWriter(out)
	if err != nil {
		return multierr.Append(err, out.Close())
	}
	if _, err = io.Copy(enc, in); err != nil {
		return multierr.Combine(err, enc.Close(), out.Close())
	}
	if err = enc.Close(); err != nil {
		return multierr.Append(err, out.Close())
	}
	if err = out.Close(); err != nil {
		return err
	}
	return os.Remove(name)
}
