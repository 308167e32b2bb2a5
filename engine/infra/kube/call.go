package kube

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentplane/agentplane/engine/core"
	"github.com/agentplane/agentplane/engine/platform"
)

// CallService performs an HTTP request against the service's in-cluster
// DNS name and decodes the JSON response body.
func (p *Platform) CallService(
	ctx context.Context,
	input platform.CallServiceInput,
) (map[string]any, error) {
	input.ApplyDefaults()
	var result map[string]any
	req := p.http.R().SetContext(ctx).SetResult(&result)
	if input.Payload != nil {
		req.SetBody(input.Payload)
	}
	resp, err := req.Execute(strings.ToUpper(input.Method), serviceURL(input))
	if err != nil {
		return nil, core.NewError(err, core.CodeServiceError, map[string]any{
			"service":   input.Name,
			"namespace": input.Namespace,
			"path":      input.Path,
		})
	}
	if resp.IsError() {
		return nil, core.NewError(
			fmt.Errorf("service responded with %s", resp.Status()),
			core.CodeServiceError,
			map[string]any{
				"service":     input.Name,
				"namespace":   input.Namespace,
				"path":        input.Path,
				"status_code": resp.StatusCode(),
			},
		)
	}
	return result, nil
}

func serviceURL(input platform.CallServiceInput) string {
	path := input.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return fmt.Sprintf("http://%s.%s:%d%s", input.Name, input.Namespace, input.Port, path)
}
