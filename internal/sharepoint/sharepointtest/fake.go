// Package sharepointtest provides an in-memory stand-in for the remote list store.
package sharepointtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/MrJamesThe3rd/gastos/internal/auth"
	"github.com/MrJamesThe3rd/gastos/internal/graph"
)

const (
	Host   = "contoso.sharepoint.com"
	Path   = "/sites/finanzas"
	SiteID = "contoso.sharepoint.com,site-guid,web-guid"
)

type list struct {
	id      string
	name    string
	library bool
	columns []graph.Column
	items   []graph.Item
	nextID  int
	files   map[string][]byte
}

// Fake implements sharepoint.Remote. It counts calls per method, can be told to
// fail a method, and rejects writes naming fields the list does not have.
type Fake struct {
	mu      sync.Mutex
	lists   []*list
	calls   map[string]int
	reads   map[string]int
	fail    map[string]error
	failUp  map[string]error
	held    map[string]chan struct{}
	listSeq int
	now     func() time.Time
}

func New() *Fake {
	return &Fake{
		calls:  make(map[string]int),
		reads:  make(map[string]int),
		fail:   make(map[string]error),
		failUp: make(map[string]error),
		held:   make(map[string]chan struct{}),
		now:    time.Now,
	}
}

// AddList creates a list and returns its id. Display names need not be unique.
func (f *Fake) AddList(name string, cols ...graph.Column) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listSeq++
	l := &list{
		id:      fmt.Sprintf("list-%d", f.listSeq),
		name:    name,
		columns: cols,
		files:   make(map[string][]byte),
	}
	f.lists = append(f.lists, l)

	return l.id
}

// AddLibrary creates a document library and returns its id.
func (f *Fake) AddLibrary(name string) string {
	id := f.AddList(name)

	f.mu.Lock()
	defer f.mu.Unlock()

	f.byID(id).library = true

	return id
}

// Seed inserts a row without counting a call and returns its id.
func (f *Fake) Seed(listName string, fields map[string]any) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	l := f.byName(listName)
	if l == nil {
		panic("sharepointtest: unknown list " + listName)
	}

	return f.insert(l, roundTrip(fields)).ID
}

// Rows returns a copy of the rows of a list in store order.
func (f *Fake) Rows(listName string) []graph.Item {
	f.mu.Lock()
	defer f.mu.Unlock()

	l := f.byName(listName)
	if l == nil {
		return nil
	}

	out := make([]graph.Item, len(l.items))
	for i, it := range l.items {
		out[i] = copyItem(it)
	}

	return out
}

// File returns an uploaded file.
func (f *Fake) File(library, path string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	l := f.byName(library)
	if l == nil {
		return nil, false
	}

	b, ok := l.files[strings.Trim(path, "/")]

	return b, ok
}

// Calls returns how many times a Remote method was invoked.
func (f *Fake) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls[method]
}

// Reads returns how many times the rows of a list were listed.
func (f *Fake) Reads(listName string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.reads[listName]
}

// TotalCalls returns the number of Remote invocations of any method.
func (f *Fake) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, c := range f.calls {
		n += c
	}

	return n
}

// Fail makes every later call of method return err. A nil err clears it.
func (f *Fake) Fail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err == nil {
		delete(f.fail, method)
		return
	}

	f.fail[method] = err
}

// FailUpload makes uploads of files whose name ends with suffix fail.
func (f *Fake) FailUpload(suffix string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failUp[suffix] = err
}

// RemoveList drops a list, simulating a site that was never provisioned.
func (f *Fake) RemoveList(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	kept := f.lists[:0]
	for _, l := range f.lists {
		if l.name != name {
			kept = append(kept, l)
		}
	}

	f.lists = kept
}

// RemoveColumn drops a column, simulating a schema change in the store.
func (f *Fake) RemoveColumn(listName, internal string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	l := f.byName(listName)
	if l == nil {
		return
	}

	kept := l.columns[:0]
	for _, c := range l.columns {
		if c.Name != internal {
			kept = append(kept, c)
		}
	}

	l.columns = kept
}

func (f *Fake) SiteByPath(ctx context.Context, host, path string) (graph.Site, error) {
	if err := f.enter(ctx, "SiteByPath"); err != nil {
		return graph.Site{}, err
	}

	if host != Host || strings.Trim(path, "/") != strings.Trim(Path, "/") {
		return graph.Site{}, notFound("site " + host + path)
	}

	return graph.Site{ID: SiteID, Name: "finanzas", WebURL: "https://" + Host + Path}, nil
}

func (f *Fake) ListsByName(ctx context.Context, siteID, name string) ([]graph.List, error) {
	if err := f.enter(ctx, "ListsByName"); err != nil {
		return nil, err
	}

	if err := checkSite(siteID); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var out []graph.List

	for _, l := range f.lists {
		if l.name == name {
			out = append(out, graph.List{ID: l.id, Name: l.name, DisplayName: l.name})
		}
	}

	return out, nil
}

func (f *Fake) Columns(ctx context.Context, siteID, listID string) ([]graph.Column, error) {
	if err := f.enter(ctx, "Columns"); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	l, err := f.list(siteID, listID)
	if err != nil {
		return nil, err
	}

	return append([]graph.Column(nil), l.columns...), nil
}

func (f *Fake) Items(ctx context.Context, siteID, listID string) ([]graph.Item, error) {
	if err := f.enter(ctx, "Items"); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	l, err := f.list(siteID, listID)
	if err != nil {
		return nil, err
	}

	f.reads[l.name]++

	out := make([]graph.Item, len(l.items))
	for i, it := range l.items {
		out[i] = copyItem(it)
	}

	return out, nil
}

func (f *Fake) CreateItem(ctx context.Context, siteID, listID string, fields map[string]any) (graph.Item, error) {
	if err := f.enter(ctx, "CreateItem"); err != nil {
		return graph.Item{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	l, err := f.list(siteID, listID)
	if err != nil {
		return graph.Item{}, err
	}

	if err := checkFields(l, fields); err != nil {
		return graph.Item{}, err
	}

	return copyItem(f.insert(l, roundTrip(fields))), nil
}

func (f *Fake) UpdateItem(ctx context.Context, siteID, listID, itemID string, fields map[string]any) (map[string]any, error) {
	if err := f.enter(ctx, "UpdateItem"); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	l, err := f.list(siteID, listID)
	if err != nil {
		return nil, err
	}

	if err := checkFields(l, fields); err != nil {
		return nil, err
	}

	for i := range l.items {
		if l.items[i].ID != itemID {
			continue
		}

		for k, v := range roundTrip(fields) {
			if v == nil {
				delete(l.items[i].Fields, k)
				continue
			}

			l.items[i].Fields[k] = v
		}

		l.items[i].LastModifiedDateTime = f.now().UTC()

		return copyItem(l.items[i]).Fields, nil
	}

	return nil, notFound("item " + itemID)
}

func (f *Fake) DeleteItem(ctx context.Context, siteID, listID, itemID string) error {
	if err := f.enter(ctx, "DeleteItem"); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	l, err := f.list(siteID, listID)
	if err != nil {
		return err
	}

	for i := range l.items {
		if l.items[i].ID == itemID {
			l.items = append(l.items[:i], l.items[i+1:]...)
			return nil
		}
	}

	return notFound("item " + itemID)
}

func (f *Fake) ListDrive(ctx context.Context, siteID, listID string) (graph.Drive, error) {
	if err := f.enter(ctx, "ListDrive"); err != nil {
		return graph.Drive{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	l, err := f.list(siteID, listID)
	if err != nil {
		return graph.Drive{}, err
	}

	if !l.library {
		return graph.Drive{}, notFound("drive of " + l.name)
	}

	return graph.Drive{ID: "drive-" + l.id, Name: l.name, DriveType: "documentLibrary"}, nil
}

func (f *Fake) Upload(ctx context.Context, driveID, path string, content io.Reader, _ string) (graph.DriveItem, error) {
	if err := f.enter(ctx, "Upload"); err != nil {
		return graph.DriveItem{}, err
	}

	path = strings.Trim(path, "/")

	f.mu.Lock()
	for suffix, err := range f.failUp {
		if strings.HasSuffix(path, suffix) {
			f.mu.Unlock()
			return graph.DriveItem{}, err
		}
	}
	f.mu.Unlock()

	data, err := io.ReadAll(content)
	if err != nil {
		return graph.DriveItem{}, fmt.Errorf("reading upload: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var lib *list

	for _, l := range f.lists {
		if "drive-"+l.id == driveID {
			lib = l
		}
	}

	if lib == nil {
		return graph.DriveItem{}, notFound("drive " + driveID)
	}

	lib.files[path] = bytes.Clone(data)

	name := path[strings.LastIndex(path, "/")+1:]

	return graph.DriveItem{
		ID:     "file-" + strconv.Itoa(len(lib.files)),
		Name:   name,
		WebURL: "https://" + Host + Path + "/" + lib.name + "/" + path,
		Size:   int64(len(data)),
	}, nil
}

// Download serves a file uploaded earlier, addressed by the web URL Upload returned.
func (f *Fake) Download(ctx context.Context, webURL string) (*http.Response, error) {
	if err := f.enter(ctx, "Download"); err != nil {
		return nil, err
	}

	rest, ok := strings.CutPrefix(webURL, "https://"+Host+Path+"/")
	if !ok {
		return nil, notFound(webURL)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, l := range f.lists {
		path, ok := strings.CutPrefix(rest, l.name+"/")
		if !ok || !l.library {
			continue
		}

		if data, ok := l.files[path]; ok {
			return &http.Response{
				StatusCode: http.StatusOK,
				Header:     http.Header{"Content-Type": {http.DetectContentType(data)}},
				Body:       io.NopCloser(bytes.NewReader(bytes.Clone(data))),
			}, nil
		}
	}

	return nil, notFound(webURL)
}

// enter counts the call, waits while the method is held and then fails like
// a real request would when ctx has ended.
func (f *Fake) enter(ctx context.Context, method string) error {
	f.mu.Lock()
	f.calls[method]++
	gate := f.held[method]
	err := f.fail[method]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	return err
}

// Hold makes calls to method block until release is called.
func (f *Fake) Hold(method string) (release func()) {
	gate := make(chan struct{})

	f.mu.Lock()
	f.held[method] = gate
	f.mu.Unlock()

	var once sync.Once

	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.held, method)
			f.mu.Unlock()

			close(gate)
		})
	}
}

func (f *Fake) insert(l *list, fields map[string]any) graph.Item {
	l.nextID++
	id := strconv.Itoa(l.nextID)

	if fields == nil {
		fields = make(map[string]any)
	}

	now := f.now().UTC().Truncate(time.Second)
	fields["id"] = id
	fields["Created"] = now.Format(time.RFC3339)

	item := graph.Item{ID: id, CreatedDateTime: now, LastModifiedDateTime: now, Fields: fields}
	l.items = append(l.items, item)

	return item
}

func (f *Fake) list(siteID, listID string) (*list, error) {
	if err := checkSite(siteID); err != nil {
		return nil, err
	}

	if l := f.byID(listID); l != nil {
		return l, nil
	}

	return nil, notFound("list " + listID)
}

func (f *Fake) byID(id string) *list {
	for _, l := range f.lists {
		if l.id == id {
			return l
		}
	}

	return nil
}

func (f *Fake) byName(name string) *list {
	for _, l := range f.lists {
		if l.name == name {
			return l
		}
	}

	return nil
}

func checkSite(siteID string) error {
	if siteID != SiteID {
		return notFound("site " + siteID)
	}

	return nil
}

func checkFields(l *list, fields map[string]any) error {
	known := make(map[string]bool, len(l.columns)*2)

	for _, c := range l.columns {
		known[c.Name] = true

		if c.Lookup != nil || c.PersonOrGroup != nil {
			known[c.Name+"LookupId"] = true
		}
	}

	for k := range fields {
		if !known[k] {
			return &graph.HTTPError{
				StatusCode: http.StatusBadRequest,
				Code:       "invalidRequest",
				Message:    fmt.Sprintf("Field '%s' is not recognized", k),
			}
		}
	}

	return nil
}

func notFound(what string) error {
	return &graph.HTTPError{StatusCode: http.StatusNotFound, Code: "itemNotFound", Message: what + " not found"}
}

// roundTrip passes values through JSON so they come back the way the REST API returns them.
func roundTrip(fields map[string]any) map[string]any {
	raw, err := json.Marshal(fields)
	if err != nil {
		panic(err)
	}

	out := make(map[string]any)
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(err)
	}

	return out
}

func copyItem(it graph.Item) graph.Item {
	fields := make(map[string]any, len(it.Fields))
	for k, v := range it.Fields {
		fields[k] = v
	}

	it.Fields = fields

	return it
}

// Accounts is a fixed account source.
type Accounts struct {
	Account  auth.Account
	SignedIn bool
}

func SignedIn(email string) *Accounts {
	return &Accounts{Account: auth.Account{ID: "acc-1", Username: email, Email: email, Name: "Test"}, SignedIn: true}
}

func (a *Accounts) ActiveAccount() (auth.Account, bool) {
	if a == nil || !a.SignedIn {
		return auth.Account{}, false
	}

	return a.Account, true
}

func TextColumn(name, display string) graph.Column {
	return graph.Column{ID: name, Name: name, DisplayName: display, Text: graph.Facet{}}
}

func NoteColumn(name, display string) graph.Column {
	return graph.Column{ID: name, Name: name, DisplayName: display, Text: graph.Facet{"allowMultipleLines": true}}
}

func NumberColumn(name, display string) graph.Column {
	return graph.Column{ID: name, Name: name, DisplayName: display, Number: graph.Facet{}}
}

func CurrencyColumn(name, display string) graph.Column {
	return graph.Column{ID: name, Name: name, DisplayName: display, Currency: graph.Facet{"locale": "es-CL"}}
}

func ChoiceColumn(name, display string, choices ...string) graph.Column {
	return graph.Column{ID: name, Name: name, DisplayName: display, Choice: graph.Facet{"choices": choices}}
}

func LookupColumn(name, display, listID string) graph.Column {
	return graph.Column{ID: name, Name: name, DisplayName: display, Lookup: graph.Facet{"listId": listID, "columnName": "Title"}}
}

func BooleanColumn(name, display string) graph.Column {
	return graph.Column{ID: name, Name: name, DisplayName: display, Boolean: graph.Facet{}}
}

func DateTimeColumn(name, display string) graph.Column {
	return graph.Column{ID: name, Name: name, DisplayName: display, DateTime: graph.Facet{"format": "dateOnly"}}
}

func PersonColumn(name, display string) graph.Column {
	return graph.Column{ID: name, Name: name, DisplayName: display, PersonOrGroup: graph.Facet{}}
}

func HyperlinkColumn(name, display string) graph.Column {
	return graph.Column{ID: name, Name: name, DisplayName: display, HyperlinkOrPicture: graph.Facet{}}
}
