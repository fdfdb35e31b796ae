package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitchellmoss/appraisal-generator/internal/blob"
	"github.com/mitchellmoss/appraisal-generator/pkg/types"
)

var generated = time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)

func janeDoe() types.AppraisalRecord {
	return types.AppraisalRecord{
		ClientName:    "Jane Doe",
		Address1:      "12 Beacon Street",
		Address2:      "Boston, MA 02108",
		AppraisalDate: "2024-03-05",
		AppraiserName: "Debbie Noble",
		Articles: []types.ArticleLineItem{
			{Description: "14k yellow gold ring\nRound brilliant diamond, 0.50ct", AppraisedValue: "$500.00"},
			{Description: "Pearl necklace", AppraisedValue: "$1,200.00"},
			{},
		},
		GeneratedAt: generated,
	}
}

func TestBuildGolden(t *testing.T) {
	doc := Build(janeDoe(), ModeExport)
	data, err := json.MarshalIndent(doc, "", "  ")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "jane_doe_export", append(data, '\n'))
}

func TestBuildFallbacks(t *testing.T) {
	doc := Build(types.AppraisalRecord{AppraisalDate: "sometime in May"}, ModePrint)

	assert.Equal(t, DefaultAppraiser, doc.Appraiser)
	assert.Equal(t, DefaultTotal, doc.Total)
	assert.Equal(t, "sometime in May", doc.Date)
	assert.Empty(t, doc.Articles)
	assert.Equal(t, ModePrint, doc.Mode)
}

func TestBuildTotalPrefersArticlesThenStoredValue(t *testing.T) {
	rec := types.AppraisalRecord{
		AppraisedValue: "$9.99",
		Articles:       []types.ArticleLineItem{{Description: "Brooch", AppraisedValue: "$10"}},
	}
	assert.Equal(t, "$10.00", Build(rec, ModeExport).Total)

	rec.Articles = []types.ArticleLineItem{{Description: "Brooch", AppraisedValue: "n/a"}}
	assert.Equal(t, "$9.99", Build(rec, ModeExport).Total)
}

func TestFormatDate(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"2024-03-05", "March 5, 2024"},
		{"2023-12-31", "December 31, 2023"},
		{"", ""},
		{"03/05/2024", "03/05/2024"},
		{"2024-13-01", "2024-13-01"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDate(tt.in), tt.in)
	}
}

func TestLayoutFor(t *testing.T) {
	tests := []struct {
		n      int
		scale  float64
		height int
	}{
		{0, 0.95, 40},
		{3, 0.95, 40},
		{4, 0.93, 35},
		{5, 0.91, 30},
		{7, 0.87, 20},
		{10, 0.81, 20},
		{25, 0.51, 20},
		{26, 0.50, 20},
		{100, 0.50, 20},
	}
	for _, tt := range tests {
		l := LayoutFor(tt.n)
		assert.InDelta(t, tt.scale, l.Scale, 1e-9, "scale for %d", tt.n)
		assert.Equal(t, tt.height, l.ArticleHeightPx, "height for %d", tt.n)
	}
}

func TestLayoutIsMonotonic(t *testing.T) {
	prev := LayoutFor(0)
	for n := 1; n <= 60; n++ {
		l := LayoutFor(n)
		assert.LessOrEqual(t, l.Scale, prev.Scale)
		assert.LessOrEqual(t, l.ArticleHeightPx, prev.ArticleHeightPx)
		prev = l
	}
}

func TestHTMLEscapesUserFields(t *testing.T) {
	rec := types.AppraisalRecord{
		ClientName:    "<b>Evil</b>",
		Address1:      `"><script>alert(1)</script>`,
		AppraiserName: "O'Brien & Sons",
		Articles:      []types.ArticleLineItem{{Description: "</div><h1>Injected</h1>", AppraisedValue: "$1"}},
	}
	for _, mode := range []Mode{ModePrint, ModeExport} {
		out, err := HTML(rec, mode)
		require.NoError(t, err)
		html := string(out)

		assert.NotContains(t, html, "<b>Evil</b>")
		assert.Contains(t, html, "&lt;b&gt;Evil&lt;/b&gt;")
		assert.NotContains(t, html, "<script>")
		assert.NotContains(t, html, "<h1>Injected</h1>")
		assert.Contains(t, html, "&lt;/div&gt;&lt;h1&gt;Injected&lt;/h1&gt;")
		assert.Contains(t, html, "O&#39;Brien &amp; Sons")
	}
}

func TestHTMLContainsEveryArticleOnce(t *testing.T) {
	for n := 0; n <= 30; n++ {
		rec := types.AppraisalRecord{ClientName: "Jane"}
		for i := 0; i < n; i++ {
			rec.Articles = append(rec.Articles, types.ArticleLineItem{
				Description:    fmt.Sprintf("item-%03d", i),
				AppraisedValue: "$1",
			})
		}
		out, err := HTML(rec, ModePrint)
		require.NoError(t, err)
		html := string(out)

		assert.Equal(t, n, strings.Count(html, `<div class="article-content">`), "articles for %d", n)
		for i := 0; i < n; i++ {
			assert.Equal(t, 1, strings.Count(html, fmt.Sprintf("item-%03d", i)), "item %d of %d", i, n)
		}
		assert.Equal(t, 1, strings.Count(html, `<div class="page">`))
	}
}

func TestHTMLKeepsBlankArticles(t *testing.T) {
	rec := types.AppraisalRecord{
		ClientName: "Jane",
		Articles: []types.ArticleLineItem{
			{Description: "Ring", AppraisedValue: "$5"},
			{},
			{Description: "   "},
			{Description: "Watch"},
		},
	}

	doc := Build(rec, ModePrint)
	require.Len(t, doc.Articles, 4)
	for i, a := range doc.Articles {
		assert.Equal(t, i+1, a.Number)
		assert.Equal(t, rec.Articles[i].Description, a.Description)
	}
	assert.Equal(t, LayoutFor(4), doc.Layout)

	out, err := HTML(rec, ModePrint)
	require.NoError(t, err)
	html := string(out)
	assert.Equal(t, 4, strings.Count(html, `<div class="article-content">`))
	assert.Less(t, strings.Index(html, "Ring"), strings.Index(html, "Watch"))
	assert.Contains(t, html, `data-article="4"`)
}

func TestHTMLPrintStyleOnlyInPrintMode(t *testing.T) {
	rec := janeDoe()

	printed, err := HTML(rec, ModePrint)
	require.NoError(t, err)
	assert.Contains(t, string(printed), `<style media="print">`)
	assert.Contains(t, string(printed), "transform: scale(0.95)")
	assert.Contains(t, string(printed), "min-height: 40px")

	exported, err := HTML(rec, ModeExport)
	require.NoError(t, err)
	assert.NotContains(t, string(exported), `<style media="print">`)
	assert.Contains(t, string(exported), "size: 8.5in 11in")
	assert.Contains(t, string(exported), "break-inside: avoid")
}

func TestHTMLCertificateContent(t *testing.T) {
	out, err := HTML(janeDoe(), ModeExport)
	require.NoError(t, err)
	html := string(out)

	for _, want := range []string{
		"<h1>APPRAISAL</h1>",
		"<p>Debbie Noble Designs</p>",
		"<p>333 Washington Street, Boston MA 02108</p>",
		"<p>(508)380-2661</p>",
		"<h2>DESCRIPTION OF ARTICLE</h2>",
		`<div class="date">March 5, 2024</div>`,
		"Appraised Value: $1,700.00",
		"<div>Debbie Noble</div>",
		Disclaimer[0],
		Disclaimer[1],
		Disclaimer[2],
		`<div class="seal">OFFICIAL JEWELRY APPRAISAL</div>`,
		`<meta name="generated-at" content="2024-03-05T14:30:00Z">`,
	} {
		assert.Contains(t, html, want)
	}
}

func TestExportIsDeterministic(t *testing.T) {
	a, err := HTML(janeDoe(), ModeExport)
	require.NoError(t, err)
	b, err := HTML(janeDoe(), ModeExport)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(a, b))
}

func TestFilename(t *testing.T) {
	at := time.Date(2024, 3, 5, 23, 30, 0, 0, time.FixedZone("EST", -5*3600))
	tests := []struct {
		client, want string
	}{
		{"Jane Doe", "appraisal_Jane_Doe_2024-03-06.html"},
		{"  O'Brien, Mary  ", "appraisal_O_Brien__Mary_2024-03-06.html"},
		{"", "appraisal_CLIENTNAME_2024-03-06.html"},
		{"   ", "appraisal_CLIENTNAME_2024-03-06.html"},
		{"José", "appraisal_Jos__2024-03-06.html"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Filename(tt.client, at), tt.client)
	}
}

func TestExporterStoresUnderFilename(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemory()
	e := NewExporter(store, WithExportClock(func() time.Time { return generated }))

	rec := janeDoe()
	rec.GeneratedAt = time.Time{}
	rec.ID = "rec-1"
	res, err := e.Export(ctx, rec)
	require.NoError(t, err)

	assert.Equal(t, "appraisal_Jane_Doe_2024-03-05.html", res.Key)
	assert.Equal(t, blob.DriverMemory, res.Driver)
	assert.Equal(t, generated, res.GeneratedAt)
	assert.Equal(t, "mem://appraisal_Jane_Doe_2024-03-05.html", res.URL)

	info, rc, err := store.Get(ctx, res.Key)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, ContentType, info.ContentType)
	assert.Equal(t, "rec-1", info.Metadata["appraisal-id"])
	assert.EqualValues(t, len(body), res.Size)

	want, err := HTML(janeDoe(), ModeExport)
	require.NoError(t, err)
	assert.Equal(t, string(want), string(body))

	// Re-exporting the same snapshot at the same instant overwrites with identical bytes.
	again, err := e.Export(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, res, again)
}

type failingStore struct{ blob.Store }

func (failingStore) Put(context.Context, string, io.Reader, blob.PutOptions) (blob.Info, error) {
	return blob.Info{}, errors.New("disk full")
}

func TestExporterWrapsStoreFailure(t *testing.T) {
	e := NewExporter(failingStore{blob.NewMemory()})
	_, err := e.Export(context.Background(), janeDoe())
	assert.ErrorIs(t, err, types.ErrRender)
	assert.ErrorContains(t, err, "disk full")
}

func TestPrinterRunsCommandAndRemovesScratchDir(t *testing.T) {
	parent := t.TempDir()
	var gotName string
	var gotArgs []string
	var contents string
	run := func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotName, gotArgs = name, args
		b, err := os.ReadFile(args[len(args)-1])
		if err != nil {
			return nil, err
		}
		contents = string(b)
		return nil, nil
	}

	p := NewPrinter("lp -d front-desk", WithRunner(run), WithTempDir(parent),
		WithPrintClock(func() time.Time { return generated }))
	require.NoError(t, p.Print(context.Background(), janeDoe()))

	assert.Equal(t, "lp", gotName)
	require.Len(t, gotArgs, 3)
	assert.Equal(t, []string{"-d", "front-desk"}, gotArgs[:2])
	assert.Equal(t, "appraisal_Jane_Doe_2024-03-05.html", filepath.Base(gotArgs[2]))
	assert.Contains(t, contents, `<style media="print">`)

	entries, err := os.ReadDir(parent)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPrinterFailureIsRenderErrorAndCleansUp(t *testing.T) {
	parent := t.TempDir()
	run := func(context.Context, string, ...string) ([]byte, error) {
		return []byte("lp: no default destination\n"), errors.New("exit status 1")
	}
	p := NewPrinter("", WithRunner(run), WithTempDir(parent))

	err := p.Print(context.Background(), janeDoe())
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrRender)
	assert.ErrorContains(t, err, "no default destination")

	entries, err := os.ReadDir(parent)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPrinterMissingTempParentIsRenderError(t *testing.T) {
	p := NewPrinter("lp", WithTempDir(filepath.Join(t.TempDir(), "missing")),
		WithRunner(func(context.Context, string, ...string) ([]byte, error) {
			t.Fatal("command must not run")
			return nil, nil
		}))
	err := p.Print(context.Background(), janeDoe())
	assert.ErrorIs(t, err, types.ErrRender)
}
