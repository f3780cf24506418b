package mlops

import "testing"

func TestRepoFullName(t *testing.T) {
	for _, tt := range []struct {
		name     string
		username string
		repo     string
		want     string
	}{
		{name: "bare repository", username: "octocat", repo: "model-build", want: "octocat/model-build"},
		{name: "already qualified", username: "octocat", repo: "someone/model-build", want: "octocat/model-build"},
		{name: "deeply qualified", username: "octocat", repo: "org/team/model-build", want: "octocat/model-build"},
		{name: "trailing slash leaves an empty segment", username: "octocat", repo: "model-build/", want: "octocat/"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if got := repoFullName(tt.username, tt.repo); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
