package skill

import (
	"context"
	"errors"
	"strings"
	"testing"

	"focus/internal/llm"
)

func TestRenderSkillMD_IncludesFrontmatterAndBody(t *testing.T) {
	got := RenderSkillMD("my-skill", "does a thing", "Step one.", []string{"Read", "Bash"}, false)

	if !strings.HasPrefix(got, "---\n") {
		t.Fatalf("RenderSkillMD() does not start with frontmatter delimiter: %q", got)
	}
	if !strings.Contains(got, "name: my-skill") {
		t.Fatalf("RenderSkillMD() missing name field: %q", got)
	}
	if !strings.Contains(got, "description: does a thing") {
		t.Fatalf("RenderSkillMD() missing description field: %q", got)
	}
	if !strings.Contains(got, "allowed-tools: Read, Bash") {
		t.Fatalf("RenderSkillMD() missing allowed-tools field: %q", got)
	}
	if !strings.Contains(got, "Step one.") {
		t.Fatalf("RenderSkillMD() missing body: %q", got)
	}
	if strings.Contains(got, "disable-model-invocation") {
		t.Fatalf("RenderSkillMD() should omit disable-model-invocation when false: %q", got)
	}
}

func TestRenderSkillMD_OmitsAllowedToolsWhenEmpty(t *testing.T) {
	got := RenderSkillMD("my-skill", "desc", "body", nil, true)
	if strings.Contains(got, "allowed-tools") {
		t.Fatalf("RenderSkillMD() should omit empty allowed-tools: %q", got)
	}
	if !strings.Contains(got, "disable-model-invocation: true") {
		t.Fatalf("RenderSkillMD() missing disable-model-invocation: %q", got)
	}
}

func TestParseGenerationResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    generationResponse
		wantErr bool
	}{
		{
			name: "plain JSON",
			raw:  `{"name":"my-skill","description":"d","body":"b","allowed_tools":["Read"]}`,
			want: generationResponse{Name: "my-skill", Description: "d", Body: "b", AllowedTools: []string{"Read"}},
		},
		{
			name: "fenced JSON",
			raw:  "```json\n{\"name\":\"my-skill\",\"description\":\"d\",\"body\":\"b\"}\n```",
			want: generationResponse{Name: "my-skill", Description: "d", Body: "b"},
		},
		{
			name:    "invalid JSON",
			raw:     "not json at all",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseGenerationResponse(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseGenerationResponse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got.Name != tt.want.Name || got.Description != tt.want.Description || got.Body != tt.want.Body {
				t.Fatalf("parseGenerationResponse() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

type fakeProvider struct {
	response string
	err      error
}

func (f fakeProvider) Complete(ctx context.Context, model, system, userMessage string, maxTokens int) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

var _ llm.Provider = fakeProvider{}

func TestGenerateSkillMD_Success(t *testing.T) {
	provider := fakeProvider{response: `{"name":"deploy-app","description":"Deploys the app","body":"Run the deploy script.","allowed_tools":["Bash"]}`}
	got, err := GenerateSkillMD(context.Background(), provider, "claude-test", "deploy the app", Context{}, "session:abc")
	if err != nil {
		t.Fatalf("GenerateSkillMD: %v", err)
	}
	if got.Name != "deploy-app" {
		t.Fatalf("Name = %q, want deploy-app", got.Name)
	}
	if !strings.Contains(got.FullContent, "Run the deploy script.") {
		t.Fatalf("FullContent missing body: %q", got.FullContent)
	}
	if got.Source != "session:abc" {
		t.Fatalf("Source = %q, want session:abc", got.Source)
	}
}

func TestGenerateSkillMD_ProviderError(t *testing.T) {
	provider := fakeProvider{err: errors.New("boom")}
	_, err := GenerateSkillMD(context.Background(), provider, "claude-test", "deploy the app", Context{}, "session:abc")
	if err == nil {
		t.Fatalf("expected error when provider fails")
	}
}

func TestGenerateSkillMD_EmptyBodyRejected(t *testing.T) {
	provider := fakeProvider{response: `{"name":"deploy-app","description":"d","body":""}`}
	_, err := GenerateSkillMD(context.Background(), provider, "claude-test", "deploy the app", Context{}, "session:abc")
	if err == nil {
		t.Fatalf("expected error for empty body")
	}
}

func TestGenerateSkillMD_InvalidNameRejected(t *testing.T) {
	provider := fakeProvider{response: `{"name":"!!!","description":"d","body":"do it"}`}
	_, err := GenerateSkillMD(context.Background(), provider, "claude-test", "deploy the app", Context{}, "session:abc")
	if err == nil {
		t.Fatalf("expected error for unnormalizable name")
	}
}
