package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// AuditEntry is one link of a loan's append-only, hash-chained action log.
// Hash covers the entry content plus the previous entry's hash, so any
// in-place tampering breaks verification of every later link.
type AuditEntry struct {
	EntryID      string            `json:"entryID"`
	LoanID       string            `json:"loanID"`
	Action       string            `json:"action"`
	ActorID      string            `json:"actorID"`
	ActorName    string            `json:"actorName"`
	Details      map[string]string `json:"details,omitempty"`
	PreviousHash string            `json:"previousHash"`
	Hash         string            `json:"hash"`
	CreatedAt    time.Time         `json:"createdAt"`
}

// ComputeHash derives the entry hash from its content and the previous hash.
// Details are serialized in key order so the digest is stable.
func (e *AuditEntry) ComputeHash() string {
	var b strings.Builder
	b.WriteString(e.LoanID)
	b.WriteByte('|')
	b.WriteString(e.Action)
	b.WriteByte('|')
	b.WriteString(e.ActorID)
	b.WriteByte('|')
	b.WriteString(e.CreatedAt.UTC().Format(time.RFC3339Nano))
	b.WriteByte('|')
	b.WriteString(canonicalDetails(e.Details))
	b.WriteByte('|')
	b.WriteString(e.PreviousHash)
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Seal fills in PreviousHash from the prior entry (empty for the first link)
// and computes the entry's own hash.
func (e *AuditEntry) Seal(previous *AuditEntry) {
	if previous != nil {
		e.PreviousHash = previous.Hash
	} else {
		e.PreviousHash = ""
	}
	e.Hash = e.ComputeHash()
}

// VerifyAuditChain recomputes the chain over entries (oldest first) and
// reports the index of the first broken link, or -1 if the chain is intact.
func VerifyAuditChain(entries []AuditEntry) int {
	prevHash := ""
	for i := range entries {
		if entries[i].PreviousHash != prevHash {
			return i
		}
		if entries[i].ComputeHash() != entries[i].Hash {
			return i
		}
		prevHash = entries[i].Hash
	}
	return -1
}

func canonicalDetails(details map[string]string) string {
	if len(details) == 0 {
		return ""
	}
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		// json-encode values to keep separators unambiguous
		v, err := json.Marshal(details[k])
		if err != nil {
			v = []byte(fmt.Sprintf("%q", details[k]))
		}
		parts = append(parts, k+"="+string(v))
	}
	return strings.Join(parts, ",")
}
