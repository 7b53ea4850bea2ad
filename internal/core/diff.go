package core

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/illarion/passvault/internal/crypto"
	"github.com/illarion/passvault/internal/vault"
)

// digestKeySize is the size of the per-diff HMAC key
const digestKeySize = 32

// DiffEntries renders a line diff between two entry lists, such as a
// vault and one of its backups. Secrets are replaced by short digests so
// a changed password shows up without being printed. Returns "" when the
// lists are identical.
func DiffEntries(from, to []vault.Entry) (string, error) {
	// Shared by both sides so equal secrets get equal digests
	key, err := crypto.GenerateRandom(digestKeySize)
	if err != nil {
		return "", err
	}
	defer crypto.ClearBytes(key)

	fromText, err := redactedJSON(from, key)
	if err != nil {
		return "", err
	}
	toText, err := redactedJSON(to, key)
	if err != nil {
		return "", err
	}
	if fromText == toText {
		return "", nil
	}

	dmp := diffmatchpatch.New()

	// Line-mode diff for readable output
	a, b, lineArray := dmp.DiffLinesToChars(fromText, toText)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var out strings.Builder
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			out.WriteString(prefix)
			out.WriteString(line)
			if !strings.HasSuffix(line, "\n") {
				out.WriteString("\n")
			}
		}
	}
	return out.String(), nil
}

func redactedJSON(entries []vault.Entry, key []byte) (string, error) {
	redacted := make([]vault.Entry, len(entries))
	for i, e := range entries {
		e.Password = digest(e.Password, key)
		e.APIKey = digest(e.APIKey, key)
		redacted[i] = e
	}
	data, err := json.MarshalIndent(redacted, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal entries: %w", err)
	}
	return string(data) + "\n", nil
}

func digest(secret string, key []byte) string {
	if secret == "" {
		return ""
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(secret))
	return "hmac:" + hex.EncodeToString(mac.Sum(nil)[:4])
}
