package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"storyboard/internal/types"
)

// SubmitResponse is what a generation endpoint answers. Async kinds fill
// TaskID; sync kinds leave the whole payload in Raw.
type SubmitResponse struct {
	TaskID string          `json:"task_id,omitempty"`
	Raw    json.RawMessage `json:"-"`
}

func (c *Client) ListTasks(ctx context.Context) (types.Snapshot, error) {
	var tasks types.Snapshot
	if err := c.Call(ctx, http.MethodGet, "/tasks", nil, &tasks); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = types.Snapshot{}
	}
	return tasks, nil
}

// DeleteTask asks the backend to drop a finished task record. A record that
// is already gone counts as deleted.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("task id is required")
	}
	return c.Call(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil, AllowStatus(http.StatusNotFound))
}

func (c *Client) GetProject(ctx context.Context, projectID string) (*types.Project, error) {
	var project types.Project
	if err := c.Call(ctx, http.MethodGet, projectPath(projectID, ""), nil, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

func (c *Client) ListCharacters(ctx context.Context, projectID string) ([]*types.Character, error) {
	var out []*types.Character
	if err := c.Call(ctx, http.MethodGet, projectPath(projectID, "characters"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListShots(ctx context.Context, projectID string) ([]*types.Shot, error) {
	var out []*types.Shot
	if err := c.Call(ctx, http.MethodGet, projectPath(projectID, "shots"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListFusions(ctx context.Context, projectID string) ([]*types.Fusion, error) {
	var out []*types.Fusion
	if err := c.Call(ctx, http.MethodGet, projectPath(projectID, "fusions"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Generate submits a generation job. The request body is passed through
// untouched; ctx is the cancellation handle for the submission itself, not
// for the backend job it starts.
func (c *Client) Generate(ctx context.Context, kind types.GenerationKind, body any) (*SubmitResponse, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown generation kind %q", kind)
	}
	path := "/generate/" + string(kind)
	if kind.Async() {
		path = "/async" + path
	}
	var raw json.RawMessage
	if err := c.Call(ctx, http.MethodPost, path, body, &raw); err != nil {
		return nil, err
	}
	resp := &SubmitResponse{Raw: raw}
	if kind.Async() && len(raw) > 0 {
		var ack struct {
			TaskID string `json:"task_id"`
		}
		if err := json.Unmarshal(raw, &ack); err == nil {
			resp.TaskID = ack.TaskID
		}
	}
	return resp, nil
}

func projectPath(projectID, collection string) string {
	path := "/projects/" + url.PathEscape(strings.TrimSpace(projectID))
	if collection != "" {
		path += "/" + collection
	}
	return path
}
