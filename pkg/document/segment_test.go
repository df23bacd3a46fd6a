package document_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicledger/budgetmap/pkg/document"
)

// answers replays yes/no answers and records each prompt.
type answers struct {
	replies []bool
	err     error
	prompts []string
}

func (a *answers) Confirm(_ context.Context, prompt string) (bool, error) {
	a.prompts = append(a.prompts, prompt)
	if a.err != nil {
		return false, a.err
	}
	if len(a.replies) == 0 {
		return false, nil
	}
	r := a.replies[0]
	a.replies = a.replies[1:]
	return r, nil
}

const twoDepartments = `# === PAGE 1 === [size: 612x792]
[0:0:72,50] 1111 Alpha Department
[1:0:72,80] The Alpha Department does things.
[2:0:72,110] 3-YEAR EXPENDITURES AND POSITIONS
[3:0:300,110] 2022-23 2023-24 2024-25
# === PAGE 2 === [size: 612x792]
[0:0:72,40] 1111 Alpha Department - Continued
[1:0:72,80] DETAILED EXPENDITURES BY PROGRAM
# === PAGE 3 === [size: 612x792]
[0:0:72,50] 2222 Beta Agency
[1:0:72,110] 3-YEAR EXPENDITURES AND POSITIONS
# === PAGE 4 === [size: 612x792]
[0:0:72,40] 2222 Beta Agency
[0:1:72,41] - Continued
[1:0:72,80] Beta line
`

const orphanDepartment = `# === PAGE 5 === [size: 612x792]
[0:0:72,50] 3333 Gamma Office
[1:0:72,110] THREE YEAR EXPENDITURES AND POSITIONS
[2:0:72,140] Gamma text
`

func parse(t *testing.T, text string) *document.Document {
	t.Helper()
	doc, err := document.Parse(strings.NewReader(text), "budget.txt")
	require.NoError(t, err)
	return doc
}

func TestSegmentTwoDepartments(t *testing.T) {
	doc := parse(t, twoDepartments)
	op := &answers{replies: []bool{true}}

	sections, err := document.NewSegmenter(op).Segment(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, sections, 2)

	alpha, beta := sections[0], sections[1]
	assert.Equal(t, "1111", alpha.OrgCode)
	assert.Equal(t, "Alpha Department", alpha.Name)
	assert.Equal(t, 0, alpha.Start)
	assert.Equal(t, 0, alpha.HeaderIndex)
	assert.Equal(t, 2, alpha.MarkerIndex)
	assert.Equal(t, 6, alpha.End)
	assert.Equal(t, 1, alpha.StartPage)
	assert.Equal(t, 2, alpha.EndPage)

	assert.Equal(t, "2222", beta.OrgCode)
	assert.Equal(t, 6, beta.Start)
	assert.Equal(t, 7, beta.MarkerIndex)
	assert.Equal(t, doc.Len(), beta.End)
	assert.Equal(t, []int{8}, beta.Continuations)
	assert.False(t, beta.Backfilled)

	assert.LessOrEqual(t, alpha.End, beta.Start, "sections must not overlap")
	require.Len(t, op.prompts, 1)
	assert.Contains(t, op.prompts[0], "Found 2 department sections")
}

func TestSegmentRejectedListIsEmpty(t *testing.T) {
	doc := parse(t, twoDepartments)
	sections, err := document.NewSegmenter(&answers{replies: []bool{false}}).Segment(context.Background(), doc)
	require.NoError(t, err)
	assert.Empty(t, sections)
}

func TestSegmentBackfill(t *testing.T) {
	doc := parse(t, twoDepartments+orphanDepartment)

	t.Run("accepted", func(t *testing.T) {
		op := &answers{replies: []bool{true, true}}
		sections, err := document.NewSegmenter(op).Segment(context.Background(), doc)
		require.NoError(t, err)
		require.Len(t, sections, 3)

		gamma := sections[2]
		assert.Equal(t, "3333", gamma.OrgCode)
		assert.Equal(t, "Gamma Office", gamma.Name)
		assert.True(t, gamma.Backfilled)
		assert.Equal(t, doc.Len(), gamma.End)
		assert.Equal(t, gamma.Start, sections[1].End)
		assert.Contains(t, op.prompts[0], "3333 Gamma Office")
	})

	t.Run("rejected", func(t *testing.T) {
		op := &answers{replies: []bool{false, true}}
		sections, err := document.NewSegmenter(op).Segment(context.Background(), doc)
		require.NoError(t, err)
		require.Len(t, sections, 2)
		assert.Equal(t, "2222", sections[1].OrgCode)
	})
}

func TestSegmentNoCandidates(t *testing.T) {
	doc := parse(t, "[0:0:1,1] Just prose\n[0:1:1,2] More prose\n")
	op := &answers{}
	sections, err := document.NewSegmenter(op).Segment(context.Background(), doc)
	require.NoError(t, err)
	assert.Empty(t, sections)
	assert.Empty(t, op.prompts, "nothing to approve")
}

func TestSegmentOperatorError(t *testing.T) {
	abort := errors.New("aborted")
	doc := parse(t, twoDepartments)
	_, err := document.NewSegmenter(&answers{err: abort}).Segment(context.Background(), doc)
	assert.ErrorIs(t, err, abort)
}

func TestSegmentHeaderLookback(t *testing.T) {
	var b strings.Builder
	b.WriteString("[0:0:72,10] 4444 Delta Board\n")
	for i := 0; i < 5; i++ {
		b.WriteString("[0:1:72,20] filler line\n")
	}
	b.WriteString("[0:2:72,30] 3-YEAR EXPENDITURES AND POSITIONS\n")
	b.WriteString("[0:3:72,40] 4444 Delta Board - Continued\n")
	doc := parse(t, b.String())

	sections, err := document.NewSegmenter(&answers{replies: []bool{true}}, document.WithLookback(3)).Segment(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, -1, sections[0].HeaderIndex)
	assert.Equal(t, sections[0].MarkerIndex, sections[0].Start)
}
