package nllb

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/MeKo-Tech/lotra/internal/lang"
	"github.com/tidwall/gjson"
	"golang.org/x/text/unicode/norm"
)

// Special token ids used by NLLB checkpoints.
const (
	BOSID int64 = 0
	PADID int64 = 1
	EOSID int64 = 2
	UNKID int64 = 3
)

// Metaspace marks word starts in SentencePiece vocabularies.
const Metaspace = "▁"

// ModelType is the subword model stored in tokenizer.json.
type ModelType string

const (
	ModelBPE     ModelType = "BPE"
	ModelUnigram ModelType = "Unigram"
)

type mergePair struct {
	left, right string
}

// Tokenizer converts text to NLLB token ids and back. It reads the Hugging
// Face tokenizer.json format.
type Tokenizer struct {
	kind    ModelType
	vocab   map[string]int64
	pieces  map[int64]string
	special map[string]int64
	skip    map[int64]bool

	// Unigram
	scores        map[string]float64
	unkScore      float64
	maxPieceRunes int

	// BPE
	ranks map[mergePair]int

	unk int64
	bos int64
	eos int64
	pad int64
}

// LoadTokenizer reads a tokenizer.json file.
func LoadTokenizer(path string) (*Tokenizer, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read tokenizer: %w", err)
	}
	tok, err := ParseTokenizer(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse tokenizer %s: %w", path, err)
	}
	return tok, nil
}

// ParseTokenizer builds a Tokenizer from tokenizer.json content.
func ParseTokenizer(data []byte) (*Tokenizer, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("invalid JSON")
	}
	root := gjson.ParseBytes(data)
	model := root.Get("model")
	if !model.Exists() {
		return nil, errors.New("missing model section")
	}

	t := &Tokenizer{
		vocab:   make(map[string]int64),
		pieces:  make(map[int64]string),
		special: make(map[string]int64),
		skip:    make(map[int64]bool),
		unk:     UNKID,
		bos:     BOSID,
		eos:     EOSID,
		pad:     PADID,
	}

	kind := ModelType(model.Get("type").String())
	if kind == "" && model.Get("merges").Exists() {
		kind = ModelBPE
	}
	t.kind = kind

	var err error
	switch kind {
	case ModelBPE:
		err = t.loadBPE(model)
	case ModelUnigram:
		err = t.loadUnigram(model)
	default:
		err = fmt.Errorf("unsupported tokenizer model %q", kind)
	}
	if err != nil {
		return nil, err
	}

	root.Get("added_tokens").ForEach(func(_, tok gjson.Result) bool {
		content := tok.Get("content").String()
		id := tok.Get("id").Int()
		t.special[content] = id
		if _, ok := t.pieces[id]; !ok {
			t.pieces[id] = content
		}
		if tok.Get("special").Bool() {
			t.skip[id] = true
		}
		return true
	})

	for name, dst := range map[string]*int64{"<s>": &t.bos, "</s>": &t.eos, "<pad>": &t.pad, "<unk>": &t.unk} {
		if id, ok := t.TokenID(name); ok {
			*dst = id
		}
	}
	t.skip[t.bos] = true
	t.skip[t.eos] = true
	t.skip[t.pad] = true

	return t, nil
}

func (t *Tokenizer) loadBPE(model gjson.Result) error {
	vocab := model.Get("vocab")
	if !vocab.IsObject() {
		return errors.New("BPE vocab must be an object")
	}
	vocab.ForEach(func(k, v gjson.Result) bool {
		id := v.Int()
		t.vocab[k.String()] = id
		t.pieces[id] = k.String()
		return true
	})

	t.ranks = make(map[mergePair]int)
	rank := 0
	var bad error
	model.Get("merges").ForEach(func(_, m gjson.Result) bool {
		var p mergePair
		if m.IsArray() {
			parts := m.Array()
			if len(parts) != 2 {
				bad = fmt.Errorf("merge %d has %d parts", rank, len(parts))
				return false
			}
			p = mergePair{parts[0].String(), parts[1].String()}
		} else {
			left, right, ok := strings.Cut(m.String(), " ")
			if !ok {
				bad = fmt.Errorf("malformed merge %q", m.String())
				return false
			}
			p = mergePair{left, right}
		}
		if _, dup := t.ranks[p]; !dup {
			t.ranks[p] = rank
		}
		rank++
		return true
	})
	if bad != nil {
		return bad
	}

	if unk := model.Get("unk_token"); unk.Exists() {
		if id, ok := t.vocab[unk.String()]; ok {
			t.unk = id
		}
	}
	return nil
}

func (t *Tokenizer) loadUnigram(model gjson.Result) error {
	vocab := model.Get("vocab")
	if !vocab.IsArray() {
		return errors.New("unigram vocab must be an array")
	}
	t.scores = make(map[string]float64)
	minScore := math.Inf(1)
	var id int64
	vocab.ForEach(func(_, entry gjson.Result) bool {
		pair := entry.Array()
		if len(pair) == 2 {
			piece := pair[0].String()
			score := pair[1].Float()
			t.vocab[piece] = id
			t.pieces[id] = piece
			t.scores[piece] = score
			if score < minScore {
				minScore = score
			}
			if n := utf8.RuneCountInString(piece); n > t.maxPieceRunes {
				t.maxPieceRunes = n
			}
		}
		id++
		return true
	})
	if len(t.scores) == 0 {
		return errors.New("empty unigram vocab")
	}
	t.unkScore = minScore - 10
	if u := model.Get("unk_id"); u.Exists() {
		t.unk = u.Int()
	}
	return nil
}

// Kind returns the subword model type.
func (t *Tokenizer) Kind() ModelType {
	return t.kind
}

// VocabSize returns the number of distinct token ids known to the tokenizer.
func (t *Tokenizer) VocabSize() int {
	return len(t.pieces)
}

// EOS returns the end-of-sequence id.
func (t *Tokenizer) EOS() int64 {
	return t.eos
}

// TokenID returns the id of an exact token such as "kor_Hang" or "</s>".
func (t *Tokenizer) TokenID(token string) (int64, bool) {
	if id, ok := t.special[token]; ok {
		return id, true
	}
	id, ok := t.vocab[token]
	return id, ok
}

// LanguageID returns the id of the NLLB language token for c.
func (t *Tokenizer) LanguageID(c lang.Code) (int64, error) {
	code := c.NLLB()
	if code == "" {
		return 0, fmt.Errorf("no NLLB code for language %q", c)
	}
	id, ok := t.TokenID(code)
	if !ok {
		return 0, fmt.Errorf("tokenizer has no token for %s", code)
	}
	return id, nil
}

// Normalize applies NFKC and collapses whitespace runs into single spaces.
func Normalize(text string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(text)), " ")
}

// Encode converts text into token ids without language or end markers.
func (t *Tokenizer) Encode(text string) []int64 {
	text = Normalize(text)
	if text == "" {
		return nil
	}
	var ids []int64
	for _, word := range strings.Split(text, " ") {
		piece := Metaspace + word
		if id, ok := t.special[word]; ok {
			ids = append(ids, id)
			continue
		}
		switch t.kind {
		case ModelUnigram:
			ids = append(ids, t.unigram(piece)...)
		default:
			ids = append(ids, t.bpe(piece)...)
		}
	}
	return ids
}

// Decode converts ids back to text, dropping special tokens.
func (t *Tokenizer) Decode(ids []int64) string {
	var b strings.Builder
	for _, id := range ids {
		if t.skip[id] {
			continue
		}
		piece, ok := t.pieces[id]
		if !ok {
			continue
		}
		b.WriteString(piece)
	}
	return strings.TrimSpace(strings.ReplaceAll(b.String(), Metaspace, " "))
}

func (t *Tokenizer) bpe(word string) []int64 {
	symbols := make([]string, 0, utf8.RuneCountInString(word))
	for _, r := range word {
		symbols = append(symbols, string(r))
	}

	for len(symbols) > 1 {
		best, bestRank := -1, math.MaxInt
		for i := 0; i < len(symbols)-1; i++ {
			if r, ok := t.ranks[mergePair{symbols[i], symbols[i+1]}]; ok && r < bestRank {
				best, bestRank = i, r
			}
		}
		if best < 0 {
			break
		}
		symbols[best] += symbols[best+1]
		symbols = append(symbols[:best+1], symbols[best+2:]...)
	}

	ids := make([]int64, 0, len(symbols))
	for _, s := range symbols {
		if id, ok := t.vocab[s]; ok {
			ids = append(ids, id)
		} else {
			ids = append(ids, t.unk)
		}
	}
	return ids
}

// unigram segments word with the Viterbi algorithm over piece scores.
// Runs of unknown characters collapse into a single unk id.
func (t *Tokenizer) unigram(word string) []int64 {
	runes := []rune(word)
	n := len(runes)
	best := make([]float64, n+1)
	from := make([]int, n+1)
	isUnk := make([]bool, n+1)
	for i := 1; i <= n; i++ {
		best[i] = math.Inf(-1)
	}

	for end := 1; end <= n; end++ {
		lo := end - t.maxPieceRunes
		if lo < 0 {
			lo = 0
		}
		for start := lo; start < end; start++ {
			if math.IsInf(best[start], -1) {
				continue
			}
			score, ok := t.scores[string(runes[start:end])]
			if !ok {
				continue
			}
			if s := best[start] + score; s > best[end] {
				best[end], from[end], isUnk[end] = s, start, false
			}
		}
		if math.IsInf(best[end], -1) && !math.IsInf(best[end-1], -1) {
			best[end], from[end], isUnk[end] = best[end-1]+t.unkScore, end-1, true
		}
	}

	var rev []int64
	prevUnk := false
	for end := n; end > 0; end = from[end] {
		if isUnk[end] {
			if !prevUnk {
				rev = append(rev, t.unk)
			}
			prevUnk = true
			continue
		}
		prevUnk = false
		rev = append(rev, t.vocab[string(runes[from[end]:end])])
	}

	ids := make([]int64, len(rev))
	for i, id := range rev {
		ids[len(rev)-1-i] = id
	}
	return ids
}
