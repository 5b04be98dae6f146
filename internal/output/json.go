package output

import (
	"encoding/json"

	"github.com/pcrwatch/pcrwatch/internal/core"
)

// JSONFormatter renders snapshots as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatSnapshot renders one snapshot as JSON.
func (f *JSONFormatter) FormatSnapshot(snap *core.Snapshot) (string, error) {
	if snap == nil {
		return "", nil
	}

	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(snap, "", "  ")
	} else {
		data, err = json.Marshal(snap)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}
