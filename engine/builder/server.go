package builder

import (
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	policyv1 "k8s.io/api/policy/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
)

// DefaultActionServicePort is the port agent containers serve their
// action API on when the agent does not declare one.
const DefaultActionServicePort = 8000

// ServicePort is the port the agent's Service listens on; it forwards
// to the container's action port.
const ServicePort = 80

func serverLabels(name string) map[string]string {
	return map[string]string{"app": name}
}

// AgentDeployment builds the Deployment running an agent's action
// server. The pod exposes a readiness probe on /readyz per the agent
// HTTP contract.
func AgentDeployment(name, image string, port int32, replicas int32) *appsv1.Deployment {
	labels := serverLabels(name)
	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:   name,
			Labels: labels,
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: &replicas,
			Selector: &metav1.LabelSelector{MatchLabels: labels},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{
						{
							Name:  "agent",
							Image: image,
							Ports: []corev1.ContainerPort{
								{ContainerPort: port},
							},
							ReadinessProbe: &corev1.Probe{
								ProbeHandler: corev1.ProbeHandler{
									HTTPGet: &corev1.HTTPGetAction{
										Path: "/readyz",
										Port: intstr.FromInt32(port),
									},
								},
							},
						},
					},
				},
			},
		},
	}
}

// AgentService builds the ClusterIP Service fronting an agent's pods.
func AgentService(name string, targetPort int32) *corev1.Service {
	labels := serverLabels(name)
	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:   name,
			Labels: labels,
		},
		Spec: corev1.ServiceSpec{
			Selector: labels,
			Ports: []corev1.ServicePort{
				{
					Port:       ServicePort,
					TargetPort: intstr.FromInt32(targetPort),
				},
			},
		},
	}
}

// AgentPodDisruptionBudget keeps at least one agent pod available
// through voluntary disruptions.
func AgentPodDisruptionBudget(name string) *policyv1.PodDisruptionBudget {
	labels := serverLabels(name)
	minAvailable := intstr.FromInt32(1)
	return &policyv1.PodDisruptionBudget{
		ObjectMeta: metav1.ObjectMeta{
			Name:   name,
			Labels: labels,
		},
		Spec: policyv1.PodDisruptionBudgetSpec{
			MinAvailable: &minAvailable,
			Selector:     &metav1.LabelSelector{MatchLabels: labels},
		},
	}
}
