package agentrouter

import (
	"strconv"

	"github.com/agentplane/agentplane/engine/agent/uc"
	"github.com/agentplane/agentplane/engine/core"
	"github.com/agentplane/agentplane/engine/infra/server/router"
	"github.com/gin-gonic/gin"
)

// createAgent registers an agent and starts its build
//
//	@Summary		Create or rebuild an agent
//	@Description	Upload an agent build context and start the build workflow.
//	@Description	Re-submitting an existing name resets the agent and rebuilds it.
//	@Tags			agents
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			name				formData	string									true	"Unique agent name"
//	@Param			description			formData	string									false	"Human-readable description"
//	@Param			action_service_port	formData	int										false	"Port the agent server listens on"
//	@Param			context				formData	file									true	"Build context tarball"
//	@Success		201					{object}	router.Response{data=agent.Agent}		"Agent build requested"
//	@Failure		400					{object}	router.Response{error=router.ErrorInfo}	"Invalid request"
//	@Failure		409					{object}	router.Response{error=router.ErrorInfo}	"Agent name already taken"
//	@Failure		502					{object}	router.Response{error=router.ErrorInfo}	"Workflow engine unavailable"
//	@Router			/agents [post]
func (h *Handler) createAgent(c *gin.Context) {
	input := &uc.CreateAgentInput{
		Name:        c.PostForm("name"),
		Description: c.PostForm("description"),
	}
	if raw := c.PostForm("action_service_port"); raw != "" {
		port, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			router.RespondBadRequest(c, "invalid action_service_port: "+err.Error())
			return
		}
		input.ActionServicePort = int32(port)
	}
	fileHeader, err := c.FormFile("context")
	if err != nil {
		router.RespondBadRequest(c, "agent build context is required")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		router.RespondBadRequest(c, "reading agent build context: "+err.Error())
		return
	}
	defer file.Close()
	input.Filename = fileHeader.Filename
	input.Context = file

	created, err := uc.NewCreateAgent(h.agents, h.engine, h.fs, h.cfg, input).
		Execute(c.Request.Context())
	if err != nil {
		router.RespondError(c, err)
		return
	}
	router.RespondCreated(c, "agent build requested", created)
}

// getAgent retrieves an agent by ID or name
//
//	@Summary		Get agent
//	@Description	Retrieve an agent by its ID, or by name when the path segment is not a valid ID
//	@Tags			agents
//	@Produce		json
//	@Param			agent_ref	path		string									true	"Agent ID or name"
//	@Success		200			{object}	router.Response{data=agent.Agent}		"Agent retrieved"
//	@Failure		404			{object}	router.Response{error=router.ErrorInfo}	"Agent not found"
//	@Router			/agents/{agent_ref} [get]
func (h *Handler) getAgent(c *gin.Context) {
	found, err := uc.NewGetAgent(h.agents, agentRef(c)).Execute(c.Request.Context())
	if err != nil {
		router.RespondError(c, err)
		return
	}
	router.RespondOK(c, "agent retrieved", found)
}

// listAgents retrieves all agents
//
//	@Summary		List agents
//	@Tags			agents
//	@Produce		json
//	@Success		200	{object}	router.Response{data=object{agents=[]agent.Agent}}	"Agents retrieved"
//	@Router			/agents [get]
func (h *Handler) listAgents(c *gin.Context) {
	agents, err := uc.NewListAgents(h.agents).Execute(c.Request.Context())
	if err != nil {
		router.RespondError(c, err)
		return
	}
	router.RespondOK(c, "agents retrieved", gin.H{"agents": agents})
}

// deleteAgent removes an agent and its platform resources
//
//	@Summary		Delete agent
//	@Description	Terminate the agent's workflow, reap its deployment, service, and
//	@Description	disruption budget, and delete the row. Tasks for the agent are removed.
//	@Tags			agents
//	@Produce		json
//	@Param			agent_ref	path	string	true	"Agent ID or name"
//	@Success		204			"Agent deleted"
//	@Failure		404			{object}	router.Response{error=router.ErrorInfo}	"Agent not found"
//	@Router			/agents/{agent_ref} [delete]
func (h *Handler) deleteAgent(c *gin.Context) {
	ref := agentRef(c)
	input := &uc.DeleteAgentInput{ID: ref.ID, Name: ref.Name}
	if _, err := uc.NewDeleteAgent(h.agents, h.engine, h.platform, h.cfg, input).
		Execute(c.Request.Context()); err != nil {
		router.RespondError(c, err)
		return
	}
	router.RespondNoContent(c)
}

// agentRef interprets the path segment as an ID when it parses as one and
// as a name otherwise, so agents stay addressable by either.
func agentRef(c *gin.Context) *uc.GetAgentInput {
	ref := c.Param("agent_ref")
	if id, err := core.ParseID(ref); err == nil {
		return &uc.GetAgentInput{ID: id}
	}
	return &uc.GetAgentInput{Name: ref}
}
