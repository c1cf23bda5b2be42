package checkpoint

import "compress/zlib"
import "encoding/json"
import "fmt"
import "io"
import "os"

import "github.com/neurlang/diffar/optim"

// Record is everything needed to resume training
type Record struct {
	Step      int                  `json:"step"`
	Model     map[string][]float32 `json:"model"`
	Optimizer optim.State          `json:"optimizer"`
	Params    map[string]any       `json:"params"`
}

// Write encodes a record to a writer
func Write(w io.Writer, rec *Record) error {
	zw := zlib.NewWriter(w)
	if err := json.NewEncoder(zw).Encode(rec); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// Read decodes a record from a reader
func Read(r io.Reader) (*Record, error) {
	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	var rec Record
	if err := json.NewDecoder(zr).Decode(&rec); err != nil {
		return nil, err
	}
	if rec.Model == nil {
		return nil, fmt.Errorf("record at step %d has no model state", rec.Step)
	}
	return &rec, nil
}

// ReadFile decodes the record stored at name
func ReadFile(name string) (*Record, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Read(file)
}
