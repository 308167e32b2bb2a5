package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/agentplane/agentplane/engine/agent"
	"github.com/agentplane/agentplane/engine/agent/infra/postgres"
	"github.com/agentplane/agentplane/engine/core"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var agentColumns = []string{
	"id", "name", "description", "docker_image", "status", "status_reason",
	"build_job_name", "build_job_namespace", "workflow_name",
	"workflow_queue_name", "action_service_port", "created_at", "updated_at",
}

func newTestAgent() *agent.Agent {
	now := time.Now().UTC()
	return &agent.Agent{
		ID:                core.MustNewID(),
		Name:              "writer",
		Description:       "writes things",
		Status:            agent.StatusPending,
		WorkflowName:      "RunAgentTaskWorkflow",
		WorkflowQueueName: "agent-tasks",
		ActionServicePort: 8000,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func agentRow(mockPool pgxmock.PgxPoolIface, a *agent.Agent) *pgxmock.Rows {
	return mockPool.NewRows(agentColumns).AddRow(
		a.ID, a.Name, a.Description, a.DockerImage, a.Status, a.StatusReason,
		a.BuildJobName, a.BuildJobNamespace, a.WorkflowName,
		a.WorkflowQueueName, a.ActionServicePort, a.CreatedAt, a.UpdatedAt,
	)
}

func TestRepository_Create(t *testing.T) {
	t.Run("Should insert a new agent row", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := postgres.NewRepository(mockPool)
		a := newTestAgent()
		mockPool.ExpectExec("INSERT INTO agents").
			WithArgs(
				a.ID, a.Name, a.Description, a.DockerImage, a.Status,
				a.StatusReason, a.BuildJobName, a.BuildJobNamespace,
				a.WorkflowName, a.WorkflowQueueName, a.ActionServicePort,
				a.CreatedAt, a.UpdatedAt,
			).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		err = repo.Create(context.Background(), a)
		assert.NoError(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
	t.Run("Should map unique violations to DUPLICATE_ITEM", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := postgres.NewRepository(mockPool)
		a := newTestAgent()
		mockPool.ExpectExec("INSERT INTO agents").
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "agents_name_key"})
		err = repo.Create(context.Background(), a)
		assert.True(t, core.IsCode(err, core.CodeDuplicateItem))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestRepository_Get(t *testing.T) {
	t.Run("Should get agent by ID", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := postgres.NewRepository(mockPool)
		a := newTestAgent()
		mockPool.ExpectQuery("SELECT (.+) FROM agents WHERE id = \\$1").
			WithArgs(a.ID).
			WillReturnRows(agentRow(mockPool, a))
		got, err := repo.GetByID(context.Background(), a.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, a.ID, got.ID)
		assert.Equal(t, agent.StatusPending, got.Status)
		assert.Nil(t, got.DockerImage)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
	t.Run("Should get agent by name", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := postgres.NewRepository(mockPool)
		a := newTestAgent()
		mockPool.ExpectQuery("SELECT (.+) FROM agents WHERE name = \\$1").
			WithArgs(a.Name).
			WillReturnRows(agentRow(mockPool, a))
		got, err := repo.GetByName(context.Background(), a.Name)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, a.Name, got.Name)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
	t.Run("Should return nil without error when agent is missing", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := postgres.NewRepository(mockPool)
		id := core.MustNewID()
		mockPool.ExpectQuery("SELECT (.+) FROM agents WHERE id = \\$1").
			WithArgs(id).
			WillReturnRows(mockPool.NewRows(agentColumns))
		got, err := repo.GetByID(context.Background(), id)
		assert.NoError(t, err)
		assert.Nil(t, got)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestRepository_List(t *testing.T) {
	t.Run("Should list agents newest first", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := postgres.NewRepository(mockPool)
		a := newTestAgent()
		b := newTestAgent()
		b.Name = "researcher"
		rows := agentRow(mockPool, a).AddRow(
			b.ID, b.Name, b.Description, b.DockerImage, b.Status, b.StatusReason,
			b.BuildJobName, b.BuildJobNamespace, b.WorkflowName,
			b.WorkflowQueueName, b.ActionServicePort, b.CreatedAt, b.UpdatedAt,
		)
		mockPool.ExpectQuery("SELECT (.+) FROM agents ORDER BY created_at DESC").
			WillReturnRows(rows)
		agents, err := repo.List(context.Background())
		require.NoError(t, err)
		require.Len(t, agents, 2)
		assert.Equal(t, "writer", agents[0].Name)
		assert.Equal(t, "researcher", agents[1].Name)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
	t.Run("Should return empty slice when no agents exist", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := postgres.NewRepository(mockPool)
		mockPool.ExpectQuery("SELECT (.+) FROM agents").
			WillReturnRows(mockPool.NewRows(agentColumns))
		agents, err := repo.List(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, agents)
		assert.Empty(t, agents)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestRepository_Update(t *testing.T) {
	t.Run("Should update the full row and bump updated_at", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := postgres.NewRepository(mockPool)
		a := newTestAgent()
		before := a.UpdatedAt
		image := "registry.local:5000/writer:latest"
		a.DockerImage = &image
		a.SetStatus(agent.StatusReady, "Agent built and ready to receive tasks.")
		mockPool.ExpectExec("UPDATE agents SET").
			WithArgs(
				a.Name, a.Description, a.DockerImage, a.Status, a.StatusReason,
				a.BuildJobName, a.BuildJobNamespace, a.WorkflowName,
				a.WorkflowQueueName, a.ActionServicePort, pgxmock.AnyArg(), a.ID,
			).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		err = repo.Update(context.Background(), a)
		assert.NoError(t, err)
		assert.True(t, a.UpdatedAt.After(before) || a.UpdatedAt.Equal(before))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
	t.Run("Should return NOT_FOUND when no row matches", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := postgres.NewRepository(mockPool)
		a := newTestAgent()
		mockPool.ExpectExec("UPDATE agents SET").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		err = repo.Update(context.Background(), a)
		assert.True(t, core.IsCode(err, core.CodeNotFound))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestRepository_UpdateStatus(t *testing.T) {
	t.Run("Should overwrite only the status columns", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := postgres.NewRepository(mockPool)
		id := core.MustNewID()
		reason := "Agent is active and working on a task."
		mockPool.ExpectExec("UPDATE agents SET status").
			WithArgs(agent.StatusActive, &reason, pgxmock.AnyArg(), id).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		err = repo.UpdateStatus(context.Background(), id, agent.StatusActive, reason)
		assert.NoError(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
	t.Run("Should clear the reason when empty", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := postgres.NewRepository(mockPool)
		id := core.MustNewID()
		mockPool.ExpectExec("UPDATE agents SET status").
			WithArgs(agent.StatusIdle, (*string)(nil), pgxmock.AnyArg(), id).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		err = repo.UpdateStatus(context.Background(), id, agent.StatusIdle, "")
		assert.NoError(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
	t.Run("Should return NOT_FOUND when no row matches", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := postgres.NewRepository(mockPool)
		id := core.MustNewID()
		mockPool.ExpectExec("UPDATE agents SET status").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		err = repo.UpdateStatus(context.Background(), id, agent.StatusIdle, "")
		assert.True(t, core.IsCode(err, core.CodeNotFound))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestRepository_Delete(t *testing.T) {
	t.Run("Should delete an existing agent", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := postgres.NewRepository(mockPool)
		id := core.MustNewID()
		mockPool.ExpectExec("DELETE FROM agents WHERE id = \\$1").
			WithArgs(id).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))
		err = repo.Delete(context.Background(), id)
		assert.NoError(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
	t.Run("Should return NOT_FOUND for a missing agent", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := postgres.NewRepository(mockPool)
		id := core.MustNewID()
		mockPool.ExpectExec("DELETE FROM agents WHERE id = \\$1").
			WithArgs(id).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))
		err = repo.Delete(context.Background(), id)
		assert.True(t, core.IsCode(err, core.CodeNotFound))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}
