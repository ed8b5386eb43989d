package index

import (
	"testing"
	"time"

	"github.com/tradewise/trade-data-assistant/internal/core/domain"
)

func chunkFixture(doc string, idx int, text string) domain.Chunk {
	return domain.Chunk{
		DocumentID: doc,
		Filename:   doc,
		Index:      idx,
		Text:       text,
	}
}

func TestHolderUnavailableBeforeFirstSwap(t *testing.T) {
	h := NewHolder()

	if _, err := h.Semantic([]float32{1, 0}, 5); !domain.IsKind(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected index unavailable, got %v", err)
	}
	if _, err := h.Lexical("tariff", 5); !domain.IsKind(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected index unavailable, got %v", err)
	}
	if _, err := h.Profile(); !domain.IsKind(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected index unavailable, got %v", err)
	}
	if stats := h.Stats(); stats.Ready {
		t.Fatalf("expected not ready, got %+v", stats)
	}
}

func TestSemanticSearchRanksByCosine(t *testing.T) {
	h := NewHolder()
	chunks := []domain.Chunk{
		chunkFixture("a.txt", 0, "import duties"),
		chunkFixture("a.txt", 1, "export controls"),
		chunkFixture("b.txt", 0, "rules of origin"),
	}
	vectors := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0.9, 0.1, 0},
	}
	h.Swap(chunks, vectors, &domain.TopicProfile{}, time.Now())

	got, err := h.Semantic([]float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("semantic: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].Key() != "a.txt:0" {
		t.Fatalf("expected exact match first, got %s", got[0].Key())
	}
	if got[1].Key() != "b.txt:0" {
		t.Fatalf("expected near match second, got %s", got[1].Key())
	}
	if got[0].Score <= got[1].Score {
		t.Fatalf("scores not descending: %v vs %v", got[0].Score, got[1].Score)
	}
}

func TestSemanticSearchBreaksTiesByInsertionOrder(t *testing.T) {
	h := NewHolder()
	chunks := []domain.Chunk{
		chunkFixture("b.txt", 0, "second inserted"),
		chunkFixture("a.txt", 0, "first inserted"),
	}
	// Identical vectors: identical cosine scores.
	vectors := [][]float32{
		{1, 1},
		{1, 1},
	}
	h.Swap(chunks, vectors, &domain.TopicProfile{}, time.Now())

	got, err := h.Semantic([]float32{1, 1}, 2)
	if err != nil {
		t.Fatalf("semantic: %v", err)
	}
	if got[0].Key() != "b.txt:0" || got[1].Key() != "a.txt:0" {
		t.Fatalf("tie not broken by insertion order: %s, %s", got[0].Key(), got[1].Key())
	}
}

func TestLexicalSearchFavorsTermDensity(t *testing.T) {
	h := NewHolder()
	chunks := []domain.Chunk{
		chunkFixture("quota.txt", 0, "Quota allocation follows the quota year. Quota transfers need approval."),
		chunkFixture("misc.txt", 0, "General shipping instructions and packaging notes."),
		chunkFixture("misc.txt", 1, "A quota is mentioned once here among other matters."),
	}
	vectors := [][]float32{{1}, {1}, {1}}
	h.Swap(chunks, vectors, &domain.TopicProfile{}, time.Now())

	got, err := h.Lexical("quota transfers", 3)
	if err != nil {
		t.Fatalf("lexical: %v", err)
	}
	if len(got) == 0 {
		t.Fatalf("expected lexical hits")
	}
	if got[0].Key() != "quota.txt:0" {
		t.Fatalf("expected dense chunk first, got %s", got[0].Key())
	}
	for _, r := range got {
		if r.Signal != domain.SignalLexical {
			t.Fatalf("expected lexical signal, got %q", r.Signal)
		}
	}
}

func TestSwapReplacesSnapshotAtomically(t *testing.T) {
	h := NewHolder()
	h.Swap(
		[]domain.Chunk{chunkFixture("old.txt", 0, "old corpus text")},
		[][]float32{{1, 0}},
		&domain.TopicProfile{Documents: 1},
		time.Unix(100, 0),
	)

	// Readers holding results from the old snapshot keep them; new queries
	// see only the replacement.
	before, err := h.Lexical("old", 5)
	if err != nil {
		t.Fatalf("lexical: %v", err)
	}
	if len(before) != 1 {
		t.Fatalf("expected old corpus hit, got %d", len(before))
	}

	h.Swap(
		[]domain.Chunk{chunkFixture("new.txt", 0, "new corpus text")},
		[][]float32{{0, 1}},
		&domain.TopicProfile{Documents: 1},
		time.Unix(200, 0),
	)

	after, err := h.Lexical("old", 5)
	if err != nil {
		t.Fatalf("lexical: %v", err)
	}
	if len(after) != 0 {
		t.Fatalf("old chunk still visible after swap")
	}

	stats := h.Stats()
	if !stats.Ready || stats.Chunks != 1 || !stats.LastRebuild.Equal(time.Unix(200, 0)) {
		t.Fatalf("unexpected stats after swap: %+v", stats)
	}
}

func TestTokenizeSplitsOnNonAlphaNum(t *testing.T) {
	got := Tokenize("HS-Code 8471.30: Laptops")
	want := []string{"hs", "code", "8471", "30", "laptops"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
