package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/adrianliechti/forge/pkg/client"
	"github.com/adrianliechti/forge/pkg/commit"
	"github.com/adrianliechti/forge/pkg/document"
	"github.com/adrianliechti/forge/pkg/geometry"
	"github.com/adrianliechti/forge/pkg/layer"
)

func main() {
	urlFlag := flag.String("url", "http://localhost:8080", "server url")
	tokenFlag := flag.String("token", "", "server token")

	docFlag := flag.String("doc", "", "document id")
	fileFlag := flag.String("file", "", "extracted document (json) to ingest")
	pageFlag := flag.Int("page", 0, "page index")

	flag.Parse()

	ctx := context.Background()

	options := []client.RequestOption{}

	if *tokenFlag != "" {
		options = append(options, client.WithToken(*tokenFlag))
	}

	c := client.New(*urlFlag, options...)

	docID := *docFlag

	if *fileFlag != "" {
		doc, err := ingest(ctx, c, *fileFlag)

		if err != nil {
			panic(err)
		}

		docID = doc.ID
		fmt.Printf("ingested %s (%d pages)\n", doc.ID, len(doc.Pages))
	}

	if docID == "" {
		fmt.Fprintln(os.Stderr, "either -doc or -file is required")
		os.Exit(2)
	}

	e, err := newEditor(ctx, c, docID, *pageFlag)

	if err != nil {
		panic(err)
	}

	e.run(ctx)
}

func ingest(ctx context.Context, c *client.Client, path string) (*document.Document, error) {
	data, err := os.ReadFile(path)

	if err != nil {
		return nil, err
	}

	var doc document.Document

	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	return c.Documents.Ingest(ctx, &doc)
}

type editor struct {
	client *client.Client

	docID string
	page  int

	layers      *layer.Store
	coordinator *commit.Coordinator

	selection []document.SelectionFingerprint
}

func newEditor(ctx context.Context, c *client.Client, docID string, page int) (*editor, error) {
	doc, err := c.FetchDecoded(ctx, docID)

	if err != nil {
		return nil, err
	}

	layers := layer.New(docID, c)

	for i := range doc.Pages {
		layers.SetBase(&doc.Pages[i])
	}

	patchsets, err := c.Patchsets(ctx, docID)

	if err != nil {
		return nil, err
	}

	layers.SetPatchsets(patchsets)

	coordinator := commit.New(c, commit.WithPlanner(c), commit.WithLayers(layers))

	coordinator.OnState(func(state commit.State) {
		if state == commit.StateConflicted {
			fmt.Println("conflict, reconciling...")
		}
	})

	if _, err := coordinator.RefreshOverlay(ctx, docID, page); err != nil {
		return nil, err
	}

	return &editor{
		client: c,

		docID: docID,
		page:  page,

		layers:      layers,
		coordinator: coordinator,
	}, nil
}

func (e *editor) run(ctx context.Context) {
	reader := bufio.NewReader(os.Stdin)
	output := os.Stdout

LOOP:
	for {
		output.WriteString(">>> ")
		input, err := reader.ReadString('\n')

		if err != nil {
			return
		}

		input = strings.TrimSpace(input)

		if input == "" {
			continue LOOP
		}

		if strings.HasPrefix(input, "/") {
			fields := strings.Fields(input)

			switch strings.ToLower(fields[0]) {
			case "/show":
				e.show()

			case "/select":
				e.selectIDs(fields[1:])

			case "/region":
				e.selectRegion(ctx, fields[1:])

			case "/layers":
				e.listLayers()

			case "/toggle":
				e.toggle(fields[1:])

			case "/undo":
				e.undo(ctx)

			case "/page":
				e.switchPage(ctx, fields[1:])

			default:
				output.WriteString("Unknown command\n")
			}

			continue LOOP
		}

		e.edit(ctx, input)
	}
}

func (e *editor) composite() (*document.Page, bool) {
	page, err := e.layers.Composite(e.page)

	if err != nil {
		fmt.Println(err)
		return nil, false
	}

	return page, true
}

func (e *editor) show() {
	page, ok := e.composite()

	if !ok {
		return
	}

	for _, el := range page.Elements {
		if el.Kind != document.KindTextRun {
			continue
		}

		fmt.Printf("%s  %s\n", el.ID, el.Text)
	}
}

func (e *editor) selectIDs(ids []string) {
	page, ok := e.composite()

	if !ok {
		return
	}

	e.selection = nil

	for _, id := range ids {
		el, ok := page.Element(id)

		if !ok {
			fmt.Printf("unknown element %s\n", id)
			continue
		}

		e.selection = append(e.selection, document.Fingerprint(e.page, *el))
	}

	fmt.Printf("%d selected\n", len(e.selection))
}

func (e *editor) selectRegion(ctx context.Context, args []string) {
	if len(args) != 4 {
		fmt.Println("usage: /region x0 y0 x1 y1")
		return
	}

	var box geometry.BBox

	for i, arg := range args {
		v, err := strconv.ParseFloat(arg, 64)

		if err != nil {
			fmt.Println(err)
			return
		}

		box[i] = v
	}

	result, err := e.client.Overlays.HitTest(ctx, e.docID, client.HitTestRequest{
		PageIndex: e.page,
		Region:    &box,
	})

	if err != nil {
		fmt.Println(err)
		return
	}

	ids := make([]string, 0, len(result.Candidates))

	for _, c := range result.Candidates {
		ids = append(ids, c.ID)
	}

	e.selectIDs(ids)
}

func (e *editor) listLayers() {
	for _, ps := range e.layers.Patchsets() {
		visible := "on "

		if !e.layers.Visible(ps.ID) {
			visible = "off"
		}

		fmt.Printf("[%s] %s  page %d  %d ops  %s\n", visible, ps.ID, ps.PageIndex, len(ps.Ops), ps.Rationale)
	}
}

func (e *editor) toggle(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: /toggle <patchset id>")
		return
	}

	visible, err := e.layers.ToggleVisibility(args[0])

	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Printf("visible: %v\n", visible)
}

func (e *editor) undo(ctx context.Context) {
	reverted, err := e.coordinator.Undo(ctx, e.docID)

	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Printf("reverted %s on page %d\n", reverted.ID, reverted.PageIndex)
}

func (e *editor) switchPage(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Println("usage: /page <index>")
		return
	}

	page, err := strconv.Atoi(args[0])

	if err != nil {
		fmt.Println(err)
		return
	}

	if _, err := e.coordinator.RefreshOverlay(ctx, e.docID, page); err != nil {
		fmt.Println(err)
		return
	}

	e.page = page
	e.selection = nil
}

func (e *editor) edit(ctx context.Context, prompt string) {
	if len(e.selection) == 0 {
		fmt.Println("select elements first (/select or /region)")
		return
	}

	plan, err := e.coordinator.Propose(ctx, commit.ProposeRequest{
		DocumentID: e.docID,
		PageIndex:  e.page,

		Selection: e.selection,
		Prompt:    prompt,
	})

	if err != nil {
		fmt.Println(err)
		return
	}

	version, _ := e.coordinator.Cache().Version(e.docID, e.page)

	result, err := e.coordinator.Commit(ctx, commit.Request{
		CommitRequest: document.CommitRequest{
			DocumentID: e.docID,
			PageIndex:  e.page,

			BaseOverlayVersion: &version,

			Selection: e.selection,
			Ops:       plan.Ops,

			Rationale: plan.Rationale,
		},

		Prompt: prompt,
	})

	if err != nil {
		fmt.Println(err)
		return
	}

	for i, r := range result.Results {
		status := "ok"

		if !r.OK {
			status = "failed: " + r.Error
		} else if r.Overflow {
			status = "ok (overflow)"
		}

		fmt.Printf("%s %s %s\n", result.Ops[i].Type, r.ElementID, status)
	}

	fmt.Printf("overlay version %d\n", result.OverlayVersion)

	e.selection = nil
}
