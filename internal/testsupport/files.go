package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// FallTranscript is a realistic call transcript describing a recurring fall.
const FallTranscript = `Carer: Hi, this is Sarah calling about Mrs Edith Brown at 12 Oak Lane.
I arrived at 9am and found her on the bedroom floor. She said she had been there since about 7.
She has a bruise on her left arm, no other injuries. This is her second fall this week.
She seemed a bit confused about what day it was. I helped her up after checking her over.`

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
