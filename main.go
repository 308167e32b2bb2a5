//	@title			AgentPlane API
//	@version		1.0
//	@description	AgentPlane registers containerized AI agents, builds their action
//	@description	images, rolls out their action servers, and runs their tasks as
//	@description	durable workflows.

//	@BasePath	/api/v0

//	@tag.name			agents
//	@tag.description	Agent registration, builds, and lifecycle

//	@tag.name			tasks
//	@tag.description	Task submission, approval, instructions, and cancellation

//	@tag.name			health
//	@tag.description	Liveness and readiness probes

//	@tag.name			Operations
//	@tag.description	Operational endpoints for monitoring

package main

import (
	"os"

	"github.com/agentplane/agentplane/cli"
)

func main() {
	if err := cli.RootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
