package apppath

import (
	"fmt"
	"regexp"
)

var nameRegexp = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// ValidateName checks that a store name conforms to the naming rules used
// for filesystem directory components.
func ValidateName(name string) error {
	if !nameRegexp.MatchString(name) {
		return fmt.Errorf("invalid store name %q: must match ^[a-z0-9_-]{1,64}$", name)
	}
	return nil
}
