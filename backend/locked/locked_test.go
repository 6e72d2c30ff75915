package locked

import (
	"testing"

	"github.com/unkn0wn-root/concache/backend/backendtest"
)

func TestContract(t *testing.T) {
	backendtest.Run(t, Factory[string, int]())
}
