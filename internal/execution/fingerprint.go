package execution

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/Knouxai/Knoux-versa-sub002/internal/domain"
)

// Fingerprint identifies the result a payload produces. The job id and the
// session token do not affect the result and are left out.
func Fingerprint(p domain.TransformPayload) (string, error) {
	p.JobID = ""
	p.VIPToken = ""
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("execution: fingerprint: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
