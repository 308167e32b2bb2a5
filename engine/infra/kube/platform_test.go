package kube_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-resty/resty/v2"
	appsv1 "k8s.io/api/apps/v1"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	policyv1 "k8s.io/api/policy/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/agentplane/agentplane/engine/core"
	"github.com/agentplane/agentplane/engine/infra/kube"
	"github.com/agentplane/agentplane/engine/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJobSpec(name string, labels map[string]string) *batchv1.Job {
	return &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: "agents", Labels: labels},
	}
}

func TestPlatform_CreateJob(t *testing.T) {
	ctx := context.Background()
	t.Run("Should create a job and map its status", func(t *testing.T) {
		p := kube.New(fake.NewSimpleClientset())
		job, err := p.CreateJob(ctx, "agents", newJobSpec("build-writer", nil), false)
		require.NoError(t, err)
		assert.Equal(t, "build-writer", job.Name)
		assert.Equal(t, "agents", job.Namespace)
		assert.Equal(t, platform.JobPending, job.Status)
	})
	t.Run("Should return the existing job when created twice", func(t *testing.T) {
		p := kube.New(fake.NewSimpleClientset())
		_, err := p.CreateJob(ctx, "agents", newJobSpec("build-writer", map[string]string{"rev": "1"}), false)
		require.NoError(t, err)
		again, err := p.CreateJob(ctx, "agents", newJobSpec("build-writer", map[string]string{"rev": "2"}), false)
		require.NoError(t, err)
		assert.Equal(t, "build-writer", again.Name)
	})
	t.Run("Should replace the existing job when override is set", func(t *testing.T) {
		clientset := fake.NewSimpleClientset()
		p := kube.New(clientset)
		_, err := p.CreateJob(ctx, "agents", newJobSpec("build-writer", map[string]string{"rev": "1"}), false)
		require.NoError(t, err)
		_, err = p.CreateJob(ctx, "agents", newJobSpec("build-writer", map[string]string{"rev": "2"}), true)
		require.NoError(t, err)
		stored, err := clientset.BatchV1().Jobs("agents").Get(ctx, "build-writer", metav1.GetOptions{})
		require.NoError(t, err)
		assert.Equal(t, "2", stored.Labels["rev"])
	})
}

func TestPlatform_GetJob(t *testing.T) {
	ctx := context.Background()
	t.Run("Should return nil for a missing job", func(t *testing.T) {
		p := kube.New(fake.NewSimpleClientset())
		job, err := p.GetJob(ctx, "agents", "missing")
		require.NoError(t, err)
		assert.Nil(t, job)
	})
	t.Run("Should map pod counters to a status", func(t *testing.T) {
		seeded := &batchv1.Job{
			ObjectMeta: metav1.ObjectMeta{Name: "build-writer", Namespace: "agents"},
			Status:     batchv1.JobStatus{Succeeded: 1},
		}
		p := kube.New(fake.NewSimpleClientset(seeded))
		job, err := p.GetJob(ctx, "agents", "build-writer")
		require.NoError(t, err)
		assert.Equal(t, platform.JobSucceeded, job.Status)
	})
}

func TestPlatform_DeleteJob(t *testing.T) {
	ctx := context.Background()
	t.Run("Should tolerate deleting a missing job", func(t *testing.T) {
		p := kube.New(fake.NewSimpleClientset())
		assert.NoError(t, p.DeleteJob(ctx, "agents", "missing"))
	})
	t.Run("Should delete an existing job", func(t *testing.T) {
		seeded := newJobSpec("build-writer", nil)
		clientset := fake.NewSimpleClientset(seeded)
		p := kube.New(clientset)
		require.NoError(t, p.DeleteJob(ctx, "agents", "build-writer"))
		_, err := clientset.BatchV1().Jobs("agents").Get(ctx, "build-writer", metav1.GetOptions{})
		assert.Error(t, err)
	})
}

func TestPlatform_Deployments(t *testing.T) {
	ctx := context.Background()
	spec := &appsv1.Deployment{ObjectMeta: metav1.ObjectMeta{Name: "writer", Namespace: "agents"}}
	t.Run("Should collapse duplicate creates into the existing deployment", func(t *testing.T) {
		p := kube.New(fake.NewSimpleClientset())
		_, err := p.CreateDeployment(ctx, "agents", spec.DeepCopy(), false)
		require.NoError(t, err)
		again, err := p.CreateDeployment(ctx, "agents", spec.DeepCopy(), false)
		require.NoError(t, err)
		assert.Equal(t, "writer", again.Name)
	})
	t.Run("Should return nil for a missing deployment", func(t *testing.T) {
		p := kube.New(fake.NewSimpleClientset())
		dep, err := p.GetDeployment(ctx, "agents", "missing")
		require.NoError(t, err)
		assert.Nil(t, dep)
	})
	t.Run("Should report availability once replicas are up", func(t *testing.T) {
		ready := spec.DeepCopy()
		ready.Status = appsv1.DeploymentStatus{AvailableReplicas: 1, ObservedGeneration: 1}
		p := kube.New(fake.NewSimpleClientset(ready))
		dep, err := p.GetDeployment(ctx, "agents", "writer")
		require.NoError(t, err)
		assert.Equal(t, platform.DeploymentReady, dep.Status)
	})
	t.Run("Should tolerate deleting a missing deployment", func(t *testing.T) {
		p := kube.New(fake.NewSimpleClientset())
		assert.NoError(t, p.DeleteDeployment(ctx, "agents", "missing"))
	})
}

func TestPlatform_Services(t *testing.T) {
	ctx := context.Background()
	spec := &corev1.Service{ObjectMeta: metav1.ObjectMeta{Name: "writer", Namespace: "agents"}}
	t.Run("Should collapse duplicate creates into the existing service", func(t *testing.T) {
		p := kube.New(fake.NewSimpleClientset())
		_, err := p.CreateService(ctx, "agents", spec.DeepCopy(), false)
		require.NoError(t, err)
		again, err := p.CreateService(ctx, "agents", spec.DeepCopy(), false)
		require.NoError(t, err)
		assert.Equal(t, "writer", again.Name)
	})
	t.Run("Should return nil for a missing service", func(t *testing.T) {
		p := kube.New(fake.NewSimpleClientset())
		svc, err := p.GetService(ctx, "agents", "missing")
		require.NoError(t, err)
		assert.Nil(t, svc)
	})
}

func TestPlatform_PodDisruptionBudgets(t *testing.T) {
	ctx := context.Background()
	minAvailable := intstr.FromInt32(1)
	spec := &policyv1.PodDisruptionBudget{
		ObjectMeta: metav1.ObjectMeta{Name: "writer", Namespace: "agents"},
		Spec:       policyv1.PodDisruptionBudgetSpec{MinAvailable: &minAvailable},
	}
	t.Run("Should create and collapse duplicates", func(t *testing.T) {
		p := kube.New(fake.NewSimpleClientset())
		pdb, err := p.CreatePodDisruptionBudget(ctx, "agents", spec.DeepCopy(), false)
		require.NoError(t, err)
		assert.Equal(t, int32(1), pdb.MinAvailable)
		again, err := p.CreatePodDisruptionBudget(ctx, "agents", spec.DeepCopy(), false)
		require.NoError(t, err)
		assert.Equal(t, "writer", again.Name)
	})
	t.Run("Should tolerate deleting a missing budget", func(t *testing.T) {
		p := kube.New(fake.NewSimpleClientset())
		assert.NoError(t, p.DeletePodDisruptionBudget(ctx, "agents", "missing"))
	})
}

// rewriteTransport redirects service-DNS requests to a local test
// server while preserving the request path and body.
type rewriteTransport struct {
	target *url.URL
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = t.target.Scheme
	req.URL.Host = t.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

func newCallTestPlatform(t *testing.T, handler http.Handler) *kube.Platform {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	target, err := url.Parse(server.URL)
	require.NoError(t, err)
	client := resty.New().SetTransport(&rewriteTransport{target: target})
	return kube.New(fake.NewSimpleClientset(), kube.WithHTTPClient(client))
}

func TestPlatform_CallService(t *testing.T) {
	ctx := context.Background()
	t.Run("Should decode the JSON response of a GET", func(t *testing.T) {
		p := newCallTestPlatform(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{"model": "gpt-4o"})
		}))
		result, err := p.CallService(ctx, platform.CallServiceInput{Namespace: "agents", Name: "writer"})
		require.NoError(t, err)
		assert.Equal(t, "gpt-4o", result["model"])
	})
	t.Run("Should POST the payload to the action path", func(t *testing.T) {
		p := newCallTestPlatform(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/summarize", r.URL.Path)
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "hello", body["text"])
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{"summary": "hi"})
		}))
		result, err := p.CallService(ctx, platform.CallServiceInput{
			Namespace: "agents",
			Name:      "writer",
			Path:      "/summarize",
			Method:    http.MethodPost,
			Payload:   map[string]any{"text": "hello"},
		})
		require.NoError(t, err)
		assert.Equal(t, "hi", result["summary"])
	})
	t.Run("Should map non-2xx responses to SERVICE_ERROR", func(t *testing.T) {
		p := newCallTestPlatform(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		}))
		_, err := p.CallService(ctx, platform.CallServiceInput{Namespace: "agents", Name: "writer"})
		require.Error(t, err)
		assert.True(t, core.IsCode(err, core.CodeServiceError))
	})
}
