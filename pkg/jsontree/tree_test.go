package jsontree

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"testing"
)

func TestParseKeepsOrderAndKinds(t *testing.T) {
	tree, err := Parse([]byte(`{"b": "two", "a": 1, "ok": true, "none": null, "list": ["x", "y"], "nested": {"k": "v"}}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	children := tree.Children()
	wantNames := []string{"b", "a", "ok", "none", "list", "nested"}
	if len(children) != len(wantNames) {
		t.Fatalf("expected %d children, got %d", len(wantNames), len(children))
	}
	for i, name := range wantNames {
		if children[i].Name != name {
			t.Fatalf("child %d: expected %q, got %q", i, name, children[i].Name)
		}
	}

	if v, _ := tree.Child("b"); v.Value() != "two" || v.Kind() != String {
		t.Fatalf("unexpected b: %q (%s)", v.Value(), v.Kind())
	}
	if v, _ := tree.Child("a"); v.Value() != "1" || v.Kind() != Number {
		t.Fatalf("unexpected a: %q (%s)", v.Value(), v.Kind())
	}
	if v, _ := tree.Child("ok"); v.Value() != "true" || v.Kind() != Bool {
		t.Fatalf("unexpected ok: %q (%s)", v.Value(), v.Kind())
	}
	if v, _ := tree.Child("none"); v.Value() != "null" || !v.IsLeaf() {
		t.Fatalf("unexpected none: %q", v.Value())
	}
	nested, _ := tree.Child("nested")
	if nested.IsLeaf() || !nested.HasChild("k") {
		t.Fatalf("expected nested object with child k")
	}
}

func TestParseKeepsDuplicateKeys(t *testing.T) {
	tree, err := Parse([]byte(`{"k": "first", "k": "second"}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if tree.Len() != 2 {
		t.Fatalf("expected both duplicates kept, got %d children", tree.Len())
	}
	if v, _ := tree.Child("k"); v.Value() != "first" {
		t.Fatalf("Child should return the first match, got %q", v.Value())
	}
}

func TestParseUnescapesStrings(t *testing.T) {
	tree, err := Parse([]byte(`{"msg": "line\nbreak \"quoted\" é"}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	v, _ := tree.Child("msg")
	if v.Value() != "line\nbreak \"quoted\" é" {
		t.Fatalf("unexpected value %q", v.Value())
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, body := range []string{"", "   ", "<html>oops</html>", `{"a": }`, `{"a": "b"} trailing`, `[1, 2`} {
		if _, err := Parse([]byte(body)); !errors.Is(err, ErrMalformedBody) {
			t.Fatalf("Parse(%q): expected ErrMalformedBody, got %v", body, err)
		}
	}
}

func TestParseAcceptsUnpairedSurrogates(t *testing.T) {
	cases := []struct {
		body string
		key  string
		raw  string
	}{
		{body: `{"a":"\ud800"}`, key: "a", raw: `"\ud800"`},
		{body: `{"a":"x\udc00y"}`, key: "a", raw: `"x\udc00y"`},
		{body: `{"a":"\ud83d\ud83d"}`, key: "a", raw: `"\ud83d\ud83d"`},
		{body: `{"a":"\ud83d\ude00 ok"}`, key: "a", raw: `"\ud83d\ude00 ok"`},
		{body: `{"a":"\\ud800"}`, key: "a", raw: `"\\ud800"`},
	}
	for _, tc := range cases {
		tree, err := Parse([]byte(tc.body))
		if err != nil {
			t.Fatalf("Parse(%s): %v", tc.body, err)
		}
		var want string
		if err := json.Unmarshal([]byte(tc.raw), &want); err != nil {
			t.Fatalf("json.Unmarshal(%s): %v", tc.raw, err)
		}
		if v, _ := tree.Child(tc.key); v.Value() != want {
			t.Fatalf("Parse(%s): got %q, want %q", tc.body, v.Value(), want)
		}
	}

	arr, err := Parse([]byte(`["\ud83d"]`))
	if err != nil {
		t.Fatalf("Parse array: %v", err)
	}
	if vals, _ := Values(arr); len(vals) != 1 || vals[0] != "\ufffd" {
		t.Fatalf("unexpected array values %q", vals)
	}

	keyed, err := Parse([]byte(`{"\ud800":1, "b": 2}`))
	if err != nil {
		t.Fatalf("Parse escaped key: %v", err)
	}
	if !keyed.HasChild("\ufffd") || !keyed.HasChild("b") {
		t.Fatalf("unexpected children %v", keyed.Children())
	}
}

func TestPutReplacesExistingChild(t *testing.T) {
	tree := New()
	tree.Put("error", "first")
	tree.Put("error", "second")
	if tree.Len() != 1 {
		t.Fatalf("expected 1 child, got %d", tree.Len())
	}
	if v, _ := tree.Child("error"); v.Value() != "second" {
		t.Fatalf("unexpected value %q", v.Value())
	}
}

func TestHasChildOnEmptyAndNilTree(t *testing.T) {
	if New().HasChild("x") {
		t.Fatalf("empty tree should not have child x")
	}
	var nilTree *Tree
	if nilTree.HasChild("x") {
		t.Fatalf("nil tree should not have child x")
	}
}

func TestValuesCollectsLeaves(t *testing.T) {
	tree, err := Parse([]byte(`["a", 2, false]`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	vals, err := Values(tree)
	if err != nil {
		t.Fatalf("Values: %v", err)
	}
	if fmt.Sprint(vals) != "[a 2 false]" {
		t.Fatalf("unexpected values %v", vals)
	}

	nested, _ := Parse([]byte(`["a", {"b": "c"}]`))
	if _, err := Values(nested); !errors.Is(err, ErrNotLeaf) {
		t.Fatalf("expected ErrNotLeaf, got %v", err)
	}
}

func TestValuesAsConvertsLeaves(t *testing.T) {
	ints, err := ValuesAs[int](mustParseTree(t, `[3, 1, 2]`))
	if err != nil {
		t.Fatalf("ValuesAs[int]: %v", err)
	}
	if fmt.Sprint(ints) != "[3 1 2]" {
		t.Fatalf("unexpected ints %v", ints)
	}

	bools, err := ValuesAs[bool](mustParseTree(t, `{"a": true, "b": false}`))
	if err != nil {
		t.Fatalf("ValuesAs[bool]: %v", err)
	}
	if fmt.Sprint(bools) != "[true false]" {
		t.Fatalf("unexpected bools %v", bools)
	}

	floats, err := ValuesAs[float64](mustParseTree(t, `[0.5, 2]`))
	if err != nil || len(floats) != 2 || floats[0] != 0.5 || floats[1] != 2 {
		t.Fatalf("unexpected floats %v (%v)", floats, err)
	}

	if _, err := ValuesAs[int](mustParseTree(t, `[1, "two"]`)); !errors.Is(err, ErrConvert) {
		t.Fatalf("expected ErrConvert, got %v", err)
	}
	if _, err := ValuesAs[string](mustParseTree(t, `[{"x": 1}]`)); !errors.Is(err, ErrNotLeaf) {
		t.Fatalf("expected ErrNotLeaf, got %v", err)
	}
}

func mustParseTree(t *testing.T, s string) *Tree {
	t.Helper()
	tree, err := Parse([]byte(s))
	if err != nil {
		t.Fatalf("Parse(%s): %v", s, err)
	}
	return tree
}

func TestEncodeParseRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		orig := randomTree(rng, 3)
		data, err := orig.MarshalJSON()
		if err != nil {
			t.Fatalf("MarshalJSON: %v", err)
		}
		got, err := Parse(data)
		if err != nil {
			t.Fatalf("Parse(%s): %v", data, err)
		}
		if !got.Equal(orig) {
			t.Fatalf("round trip mismatch for %s", data)
		}
	}
}

func randomTree(rng *rand.Rand, depth int) *Tree {
	t := New()
	n := rng.Intn(4)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("k%d", rng.Intn(5))
		if depth > 1 && rng.Intn(3) == 0 {
			t.Add(name, randomTree(rng, depth-1))
			continue
		}
		t.Add(name, NewLeaf(randomString(rng)))
	}
	return t
}

func randomString(rng *rand.Rand) string {
	const alphabet = "abc XYZ-_\"\\/<>&\té"
	runes := []rune(alphabet)
	n := rng.Intn(8)
	out := make([]rune, n)
	for i := range out {
		out[i] = runes[rng.Intn(len(runes))]
	}
	return string(out)
}
