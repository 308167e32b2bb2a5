package builder

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// ServerName derives the Deployment/Service/PodDisruptionBudget name
// from an agent name. The derivation is pure so workflows can replay
// it: lowercase, with "." and "_" mapped to "-".
func ServerName(agentName string) string {
	name := strings.ToLower(agentName)
	name = strings.ReplaceAll(name, ".", "-")
	name = strings.ReplaceAll(name, "_", "-")
	return name
}

// sanitizeImageName makes an image name usable inside a job name:
// lowercase, with "/" and "_" mapped to "-".
func sanitizeImageName(image string) string {
	name := strings.ToLower(image)
	name = strings.ReplaceAll(name, "/", "-")
	name = strings.ReplaceAll(name, "_", "-")
	return name
}

// BuildJobName names the build job for one upload. The suffix is a
// digest of the inputs rather than a random ID, so retries of the
// submission activity produce the same name and collapse into the
// already-created job, while a fresh upload (new tar path) gets a new
// job.
func BuildJobName(image, tag, tarPath string) string {
	return fmt.Sprintf("build-%s-%s-%s", sanitizeImageName(image), tag, buildSuffix(image, tag, tarPath))
}

func buildSuffix(image, tag, tarPath string) string {
	sum := sha256.Sum256([]byte(image + "\x00" + tag + "\x00" + tarPath))
	return hex.EncodeToString(sum[:4])
}
