package taskrouter

import (
	"github.com/agentplane/agentplane/engine/infra/server/router"
	"github.com/agentplane/agentplane/engine/task/uc"
	"github.com/gin-gonic/gin"
)

// createTask submits a prompt to an agent
//
//	@Summary		Submit a task
//	@Description	Create a task for an agent and start its workflow. The agent's
//	@Description	model, instructions, and actions are snapshotted at submission time.
//	@Tags			tasks
//	@Accept			json
//	@Produce		json
//	@Param			request	body		uc.CreateTaskInput						true	"Task submission"
//	@Success		201		{object}	router.Response{data=task.Task}			"Task created"
//	@Failure		400		{object}	router.Response{error=router.ErrorInfo}	"Invalid request or unknown agent"
//	@Failure		409		{object}	router.Response{error=router.ErrorInfo}	"Task already submitted"
//	@Failure		502		{object}	router.Response{error=router.ErrorInfo}	"Agent service or workflow engine unavailable"
//	@Router			/tasks [post]
func (h *Handler) createTask(c *gin.Context) {
	input := &uc.CreateTaskInput{}
	if err := c.ShouldBindJSON(input); err != nil {
		router.RespondBadRequest(c, "invalid request body: "+err.Error())
		return
	}
	created, err := uc.NewCreateTask(h.tasks, h.agents, h.engine, h.platform, h.cfg, input).
		Execute(c.Request.Context())
	if err != nil {
		router.RespondError(c, err)
		return
	}
	router.RespondCreated(c, "task created", created)
}

// getTask retrieves a task with its live state and conversation
//
//	@Summary		Get task
//	@Description	Retrieve a task. While the stored status is non-terminal the
//	@Description	workflow engine is consulted and any change is persisted.
//	@Tags			tasks
//	@Produce		json
//	@Param			task_id	path		string									true	"Task ID"
//	@Success		200		{object}	router.Response{data=uc.GetTaskOutput}	"Task retrieved"
//	@Failure		404		{object}	router.Response{error=router.ErrorInfo}	"Task not found"
//	@Router			/tasks/{task_id} [get]
func (h *Handler) getTask(c *gin.Context) {
	taskID, ok := router.PathID(c, "task_id")
	if !ok {
		return
	}
	out, err := uc.NewGetTask(h.tasks, h.engine, h.states, taskID).Execute(c.Request.Context())
	if err != nil {
		router.RespondError(c, err)
		return
	}
	router.RespondOK(c, "task retrieved", out)
}

// listTasks retrieves all tasks
//
//	@Summary		List tasks
//	@Tags			tasks
//	@Produce		json
//	@Success		200	{object}	router.Response{data=object{tasks=[]task.Task}}	"Tasks retrieved"
//	@Router			/tasks [get]
func (h *Handler) listTasks(c *gin.Context) {
	tasks, err := uc.NewListTasks(h.tasks).Execute(c.Request.Context())
	if err != nil {
		router.RespondError(c, err)
		return
	}
	router.RespondOK(c, "tasks retrieved", gin.H{"tasks": tasks})
}

// deleteTask removes a task, its workflow, and its conversation
//
//	@Summary		Delete task
//	@Tags			tasks
//	@Produce		json
//	@Param			task_id	path	string	true	"Task ID"
//	@Success		204		"Task deleted"
//	@Failure		404		{object}	router.Response{error=router.ErrorInfo}	"Task not found"
//	@Router			/tasks/{task_id} [delete]
func (h *Handler) deleteTask(c *gin.Context) {
	taskID, ok := router.PathID(c, "task_id")
	if !ok {
		return
	}
	if err := uc.NewDeleteTask(h.tasks, h.engine, h.states, taskID).
		Execute(c.Request.Context()); err != nil {
		router.RespondError(c, err)
		return
	}
	router.RespondNoContent(c)
}

// approveTask releases a task waiting at the approval gate
//
//	@Summary		Approve task
//	@Description	Signal a task waiting for human approval that it may finish.
//	@Tags			tasks
//	@Produce		json
//	@Param			task_id	path		string								true	"Task ID"
//	@Success		200		{object}	router.Response						"Approval delivered"
//	@Failure		404		{object}	router.Response{error=router.ErrorInfo}	"Task not found"
//	@Router			/tasks/{task_id}/approve [post]
func (h *Handler) approveTask(c *gin.Context) {
	taskID, ok := router.PathID(c, "task_id")
	if !ok {
		return
	}
	if err := uc.NewApproveTask(h.tasks, h.engine, taskID).Execute(c.Request.Context()); err != nil {
		router.RespondError(c, err)
		return
	}
	router.RespondOK(c, "task approved", nil)
}

// instructTask sends a follow-up prompt to a running task
//
//	@Summary		Instruct task
//	@Description	Deliver a follow-up prompt. The task appends it to the conversation
//	@Description	and resumes its tool loop.
//	@Tags			tasks
//	@Accept			json
//	@Produce		json
//	@Param			task_id	path		string								true	"Task ID"
//	@Param			request	body		object{prompt=string}				true	"Instruction"
//	@Success		200		{object}	router.Response						"Instruction delivered"
//	@Failure		400		{object}	router.Response{error=router.ErrorInfo}	"Missing prompt"
//	@Failure		404		{object}	router.Response{error=router.ErrorInfo}	"Task not found"
//	@Router			/tasks/{task_id}/instruct [post]
func (h *Handler) instructTask(c *gin.Context) {
	taskID, ok := router.PathID(c, "task_id")
	if !ok {
		return
	}
	var body struct {
		Prompt string `json:"prompt"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		router.RespondBadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if err := uc.NewInstructTask(h.tasks, h.engine, taskID, body.Prompt).
		Execute(c.Request.Context()); err != nil {
		router.RespondError(c, err)
		return
	}
	router.RespondOK(c, "task instructed", nil)
}

// cancelTask requests cooperative cancellation
//
//	@Summary		Cancel task
//	@Description	Request cancellation. The task runs its teardown before
//	@Description	reporting Canceled.
//	@Tags			tasks
//	@Produce		json
//	@Param			task_id	path		string								true	"Task ID"
//	@Success		200		{object}	router.Response						"Cancellation requested"
//	@Failure		404		{object}	router.Response{error=router.ErrorInfo}	"Task not found"
//	@Router			/tasks/{task_id}/cancel [post]
func (h *Handler) cancelTask(c *gin.Context) {
	taskID, ok := router.PathID(c, "task_id")
	if !ok {
		return
	}
	if err := uc.NewCancelTask(h.tasks, h.engine, taskID).Execute(c.Request.Context()); err != nil {
		router.RespondError(c, err)
		return
	}
	router.RespondOK(c, "task cancellation requested", nil)
}
