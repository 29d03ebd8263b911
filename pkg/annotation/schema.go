package annotation

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// setSchema validates externally supplied annotation sets before they are
// allowed near the store. Payload fields are checked per kind where the
// flat form allows it; unknown extra fields are tolerated the same way
// the path codec tolerates unknown tokens.
//
//go:embed annotations.schema.json
var setSchema string

var compiledSetSchema = jsonschema.MustCompileString("annotations.schema.json", setSchema)

// ValidateSet checks raw JSON against the annotation-set schema. It
// returns nil when the data may safely be passed to ParseSet.
func ValidateSet(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("annotation set is not valid JSON: %w", err)
	}
	if err := compiledSetSchema.Validate(v); err != nil {
		return fmt.Errorf("annotation set rejected: %w", err)
	}
	return nil
}
