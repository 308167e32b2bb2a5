// Package builder assembles the Kubernetes object specs the build
// workflow submits: the Kaniko build job and the agent server's
// Deployment, Service, and PodDisruptionBudget.
package builder

import (
	"fmt"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Config carries the registry and build-context wiring shared by all
// build jobs.
type Config struct {
	// RegistryURL is the prefix pushed images are tagged with.
	RegistryURL string
	// ContextsPath is where the shared build-context volume is mounted,
	// both in the API server (which writes tars there) and in build
	// pods (which read them).
	ContextsPath string
	// ContextPVCName is the PersistentVolumeClaim backing ContextsPath.
	ContextPVCName string
	// RegistrySecretName is the secret holding Docker push credentials.
	RegistrySecretName string
}

const (
	kanikoImage        = "gcr.io/kaniko-project/executor:latest"
	registryVolumeName = "build-registry-secret"
	dockerConfigPath   = "/kaniko/.docker"
)

// KanikoJob builds the job spec that turns a tar archive into a pushed
// image. It returns the spec together with the image reference the job
// will push. The job removes the archive in a pre-stop hook so the
// shared volume does not accumulate build contexts.
func KanikoJob(cfg *Config, image, tag, tarPath string) (*batchv1.Job, string) {
	imageURL := fmt.Sprintf("%s/%s:%s", cfg.RegistryURL, image, tag)
	job := &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name: BuildJobName(image, tag, tarPath),
		},
		Spec: batchv1.JobSpec{
			Template: corev1.PodTemplateSpec{
				Spec: corev1.PodSpec{
					RestartPolicy: corev1.RestartPolicyNever,
					Containers: []corev1.Container{
						{
							Name:            "kaniko",
							Image:           kanikoImage,
							ImagePullPolicy: corev1.PullIfNotPresent,
							Args: []string{
								fmt.Sprintf("--context=tar://%s", tarPath),
								"--dockerfile=Dockerfile",
								fmt.Sprintf("--destination=%s", imageURL),
							},
							Env: []corev1.EnvVar{
								{Name: "DOCKER_CONFIG", Value: dockerConfigPath},
							},
							Lifecycle: &corev1.Lifecycle{
								PreStop: &corev1.LifecycleHandler{
									Exec: &corev1.ExecAction{
										Command: []string{"sh", "-c", fmt.Sprintf("rm -f %s", tarPath)},
									},
								},
							},
							VolumeMounts: []corev1.VolumeMount{
								{Name: cfg.ContextPVCName, MountPath: cfg.ContextsPath},
								{Name: registryVolumeName, MountPath: dockerConfigPath},
							},
						},
					},
					Volumes: []corev1.Volume{
						{
							Name: cfg.ContextPVCName,
							VolumeSource: corev1.VolumeSource{
								PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{
									ClaimName: cfg.ContextPVCName,
								},
							},
						},
						{
							Name: registryVolumeName,
							VolumeSource: corev1.VolumeSource{
								Secret: &corev1.SecretVolumeSource{
									SecretName: cfg.RegistrySecretName,
								},
							},
						},
					},
				},
			},
		},
	}
	return job, imageURL
}
