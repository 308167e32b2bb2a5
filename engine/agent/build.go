package agent

// BuildInput is the argument of the build workflow. The tar path points at
// the uploaded build context on the shared contexts volume.
type BuildInput struct {
	Agent        Agent  `json:"agent"`
	AgentTarPath string `json:"agent_tar_path"`
}
