package commands

import (
	"encoding/json"
	"io"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// render writes v as indented JSON or as YAML. YAML output goes through the
// JSON form first so both formats share field names.
func render(w io.Writer, format string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding output")
	}

	if format != "yaml" {
		_, err = w.Write(append(data, '\n'))
		return err
	}

	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return errors.Wrap(err, "encoding output")
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return errors.Wrap(err, "encoding yaml")
	}
	return enc.Close()
}
