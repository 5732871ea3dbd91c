package merge

import (
	"context"
	"fmt"
	"testing"

	"github.com/chathive/chathive/internal/equivalence"
	"github.com/chathive/chathive/internal/model"
)

func identityCtx() equivalence.Context {
	return equivalence.Context{ResolveUser: func(id int64) int64 { return id }}
}

func msg(id int, text string) model.Message {
	sourceID := int64(id)
	return model.Message{
		ChatID:     1,
		SourceID:   &sourceID,
		FromUserID: 1,
		Timestamp:  int64(id),
		Body: model.Body{
			Kind: model.BodyRegular,
			Text: model.RichText{{Kind: model.ElementPlain, Text: text}},
		},
	}
}

func buildSide(ids []int, changed map[int]bool) []model.Message {
	out := make([]model.Message, 0, len(ids))
	for _, id := range ids {
		text := fmt.Sprintf("text%d", id)
		if changed[id] {
			text = fmt.Sprintf("text%d-changed", id)
		}
		out = append(out, msg(id, text))
	}
	return out
}

func sourceIDs(msgs []model.Message) []int64 {
	out := make([]int64, len(msgs))
	for i, m := range msgs {
		out[i] = *m.SourceID
	}
	return out
}

func runDiff(t *testing.T, master, slave []model.Message) []Segment {
	t.Helper()
	var segs []Segment
	err := Diff(context.Background(), NewSliceSource(master), NewSliceSource(slave),
		Options{BatchSize: 3, Master: identityCtx(), Slave: identityCtx()},
		func(s Segment) error { segs = append(segs, s); return nil })
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	return segs
}

func assertKinds(t *testing.T, segs []Segment, want ...Kind) {
	t.Helper()
	if len(segs) != len(want) {
		t.Fatalf("got %d segments, want %d: %v", len(segs), len(want), kindsOf(segs))
	}
	for i, k := range want {
		if segs[i].Kind != k {
			t.Fatalf("segment %d kind = %v, want %v (full: %v)", i, segs[i].Kind, k, kindsOf(segs))
		}
	}
}

func kindsOf(segs []Segment) []Kind {
	out := make([]Kind, len(segs))
	for i, s := range segs {
		out[i] = s.Kind
	}
	return out
}

func TestScenarioS1(t *testing.T) {
	master := buildSide([]int{1, 2, 5, 6, 7, 8, 9, 10}, nil)
	slave := buildSide([]int{3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, map[int]bool{5: true, 6: true, 9: true, 10: true})

	segs := runDiff(t, master, slave)
	assertKinds(t, segs, KindRetain, KindAdd, KindReplace, KindMatch, KindReplace, KindAdd)

	if got := sourceIDs(segs[0].Master); !int64SlicesEqual(got, []int64{1, 2}) {
		t.Fatalf("retain = %v", got)
	}
	if got := sourceIDs(segs[1].Slave); !int64SlicesEqual(got, []int64{3, 4}) {
		t.Fatalf("add = %v", got)
	}
	if got := sourceIDs(segs[2].Master); !int64SlicesEqual(got, []int64{5, 6}) {
		t.Fatalf("replace master = %v", got)
	}
	if got := sourceIDs(segs[3].Master); !int64SlicesEqual(got, []int64{7, 8}) {
		t.Fatalf("match = %v", got)
	}
	if got := sourceIDs(segs[4].Master); !int64SlicesEqual(got, []int64{9, 10}) {
		t.Fatalf("replace master = %v", got)
	}
	if got := sourceIDs(segs[5].Slave); !int64SlicesEqual(got, []int64{11, 12}) {
		t.Fatalf("add = %v", got)
	}
}

func TestScenarioS2(t *testing.T) {
	master := buildSide([]int{3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, nil)
	slave := buildSide([]int{1, 2, 5, 6, 7, 8, 9, 10}, map[int]bool{5: true, 6: true, 9: true, 10: true})

	segs := runDiff(t, master, slave)
	assertKinds(t, segs, KindAdd, KindRetain, KindReplace, KindMatch, KindReplace, KindRetain)
}

func TestScenarioS3(t *testing.T) {
	const n = 5
	var masterIDs []int
	for i := 1; i <= n; i++ {
		masterIDs = append(masterIDs, i)
	}
	master := buildSide([]int{n}, nil)
	slave := buildSide(masterIDs, nil)

	segs := runDiff(t, master, slave)
	assertKinds(t, segs, KindAdd, KindMatch)
	if got := sourceIDs(segs[0].Slave); !int64SlicesEqual(got, []int64{1, 2, 3, 4}) {
		t.Fatalf("add = %v", got)
	}
	if got := sourceIDs(segs[1].Master); !int64SlicesEqual(got, []int64{5}) {
		t.Fatalf("match = %v", got)
	}
}

func TestScenarioS4(t *testing.T) {
	master := buildSide([]int{1, 2, 3, 4, 5}, nil)
	var slave []model.Message

	segs := runDiff(t, master, slave)
	assertKinds(t, segs, KindRetain)
}

func TestScenarioS5(t *testing.T) {
	ids := []int{1, 2, 3, 4, 5}
	master := buildSide(ids, nil)
	changed := map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true}
	slave := buildSide(ids, changed)

	segs := runDiff(t, master, slave)
	assertKinds(t, segs, KindReplace)
}

func TestScenarioS6(t *testing.T) {
	master := buildSide([]int{1, 3}, nil)
	slave := buildSide([]int{1, 2, 3}, nil)

	segs := runDiff(t, master, slave)
	assertKinds(t, segs, KindMatch, KindAdd, KindMatch)
}

func TestEmptyInputsProduceEmptyDiff(t *testing.T) {
	segs := runDiff(t, nil, nil)
	if len(segs) != 0 {
		t.Fatalf("got %d segments, want 0", len(segs))
	}
}

func TestIdenticalInputsProduceSingleMatch(t *testing.T) {
	ids := []int{1, 2, 3, 4}
	master := buildSide(ids, nil)
	slave := buildSide(ids, nil)

	segs := runDiff(t, master, slave)
	assertKinds(t, segs, KindMatch)
	if len(segs[0].Master) != 4 || len(segs[0].Slave) != 4 {
		t.Fatalf("match segment sizes = %d/%d, want 4/4", len(segs[0].Master), len(segs[0].Slave))
	}
}

func TestPartitionCoversEveryMessageExactlyOnce(t *testing.T) {
	master := buildSide([]int{1, 2, 5, 6, 7, 8, 9, 10}, nil)
	slave := buildSide([]int{3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, map[int]bool{5: true, 6: true, 9: true, 10: true})

	segs := runDiff(t, master, slave)

	var masterSeen, slaveSeen []int64
	for _, s := range segs {
		switch s.Kind {
		case KindRetain:
			masterSeen = append(masterSeen, sourceIDs(s.Master)...)
		case KindAdd:
			slaveSeen = append(slaveSeen, sourceIDs(s.Slave)...)
		case KindMatch, KindReplace:
			masterSeen = append(masterSeen, sourceIDs(s.Master)...)
			slaveSeen = append(slaveSeen, sourceIDs(s.Slave)...)
		}
	}
	if !int64SlicesEqual(masterSeen, sourceIDs(master)) {
		t.Fatalf("master coverage = %v, want %v", masterSeen, sourceIDs(master))
	}
	if !int64SlicesEqual(slaveSeen, sourceIDs(slave)) {
		t.Fatalf("slave coverage = %v, want %v", slaveSeen, sourceIDs(slave))
	}
}

func TestTimeShiftDetection(t *testing.T) {
	master := []model.Message{msg(1, "hello")}
	shifted := msg(1, "hello")
	shifted.Timestamp += 3600

	err := Diff(context.Background(), NewSliceSource(master), NewSliceSource([]model.Message{shifted}),
		Options{Master: identityCtx(), Slave: identityCtx()},
		func(Segment) error { return nil })
	if err == nil {
		t.Fatalf("expected a time-shift error")
	}
}

func int64SlicesEqual(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
