package formfill

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// AcroForm field flags (PDF 32000-1, 12.7.3.1 and 12.7.4)
const (
	flagReadOnly   = 1 << 0
	flagRadio      = 1 << 15
	flagPushButton = 1 << 16
	flagCombo      = 1 << 17
	flagEdit       = 1 << 18
)

// PDFCPUEngine reads and fills AcroForms with pdfcpu
type PDFCPUEngine struct {
	logger *slog.Logger
}

// NewPDFCPUEngine creates an engine. A nil logger uses slog.Default().
func NewPDFCPUEngine(logger *slog.Logger) *PDFCPUEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFCPUEngine{logger: logger}
}

func newConfiguration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Inspect implements Engine
func (e *PDFCPUEngine) Inspect(data []byte) (Info, error) {
	ctx, err := api.ReadContext(bytes.NewReader(data), newConfiguration())
	if err != nil {
		// pdfcpu cannot open documents whose user password is not empty
		if bytes.Contains(data, []byte("/Encrypt")) {
			return Info{Encrypted: true}, nil
		}
		return Info{}, fmt.Errorf("failed to read PDF context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return Info{}, fmt.Errorf("failed to ensure page count: %w", err)
	}

	info := Info{PageCount: ctx.PageCount, Encrypted: ctx.Encrypt != nil}
	if info.Encrypted {
		return info, nil
	}

	fields, err := e.walkFields(ctx)
	if err != nil {
		return Info{}, err
	}
	info.Fields = fields
	return info, nil
}

// Load implements Engine
func (e *PDFCPUEngine) Load(data []byte) (Document, error) {
	info, err := e.Inspect(data)
	if err != nil {
		return nil, err
	}
	if info.Encrypted {
		return nil, fmt.Errorf("%w: PDF is encrypted", ErrFormStructuralInvalid)
	}
	return &pdfcpuDocument{
		source: data,
		fields: info.Fields,
		values: map[string]any{},
		logger: e.logger,
	}, nil
}

// walkFields collects every terminal field reachable from the AcroForm Fields array
func (e *PDFCPUEngine) walkFields(ctx *model.Context) ([]FieldDescriptor, error) {
	rootDict, err := ctx.Catalog()
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog: %w", err)
	}

	acroFormObj, found := rootDict.Find("AcroForm")
	if !found {
		return nil, nil
	}
	acroFormDict, err := ctx.DereferenceDict(acroFormObj)
	if err != nil {
		return nil, fmt.Errorf("failed to dereference AcroForm: %w", err)
	}
	if acroFormDict == nil {
		return nil, nil
	}

	fieldsObj, found := acroFormDict.Find("Fields")
	if !found {
		return nil, nil
	}
	fieldsArray, err := ctx.DereferenceArray(fieldsObj)
	if err != nil {
		return nil, fmt.Errorf("failed to dereference Fields array: %w", err)
	}

	w := &walker{ctx: ctx, pages: annotationPages(ctx), logger: e.logger}
	for _, ref := range fieldsArray {
		w.visit(ref, "", inherited{})
	}
	return w.out, nil
}

// inherited carries the field attributes a child takes from its parent
type inherited struct {
	ft string
	ff int
}

type walker struct {
	ctx    *model.Context
	pages  map[int]int
	out    []FieldDescriptor
	logger *slog.Logger
}

func (w *walker) visit(obj types.Object, parentName string, in inherited) {
	objNr, _ := refNumber(obj)
	dict, err := w.ctx.DereferenceDict(obj)
	if err != nil || dict == nil {
		w.logger.Debug("skipping unreadable form field", "object", objNr, "error", err)
		return
	}

	name := parentName
	if t, found := dict.Find("T"); found {
		if partial, err := w.ctx.DereferenceStringOrHexLiteral(t, model.V10, nil); err == nil && partial != "" {
			if name != "" {
				name += "."
			}
			name += partial
		}
	}

	if ftObj, found := dict.Find("FT"); found {
		if ft, err := w.ctx.DereferenceName(ftObj, model.V10, nil); err == nil {
			in.ft = string(ft)
		}
	}
	if ffObj, found := dict.Find("Ff"); found {
		if ff, err := w.ctx.DereferenceInteger(ffObj); err == nil && ff != nil {
			in.ff = int(*ff)
		}
	}

	var widgets []int
	if kidsObj, found := dict.Find("Kids"); found {
		kids, err := w.ctx.DereferenceArray(kidsObj)
		if err == nil {
			var fieldKids []types.Object
			for _, kid := range kids {
				kidDict, err := w.ctx.DereferenceDict(kid)
				if err != nil || kidDict == nil {
					continue
				}
				if _, isField := kidDict.Find("T"); isField {
					fieldKids = append(fieldKids, kid)
				} else if nr, ok := refNumber(kid); ok {
					widgets = append(widgets, nr)
				}
			}
			if len(fieldKids) > 0 {
				for _, kid := range fieldKids {
					w.visit(kid, name, in)
				}
				return
			}
		}
	}
	if len(widgets) == 0 && objNr > 0 {
		// field and widget merged into one dictionary
		widgets = []int{objNr}
	}

	d := FieldDescriptor{
		ID:     strconv.Itoa(objNr),
		Name:   name,
		Kind:   fieldKind(in.ft, in.ff),
		Locked: in.ff&flagReadOnly != 0,
		Pages:  w.pagesOf(widgets),
	}
	if d.Name == "" {
		d.Name = "field_" + d.ID
	}
	switch d.Kind {
	case KindDropdown, KindListBox:
		d.Options = w.choiceOptions(dict)
		d.Editable = d.Kind == KindDropdown && in.ff&flagEdit != 0
	case KindRadio:
		d.Options = w.choiceOptions(dict)
		if len(d.Options) == 0 {
			d.Options = w.appearanceStates(widgets)
		}
	case KindText:
		d.Editable = true
	}
	w.out = append(w.out, d)
}

func fieldKind(ft string, ff int) FieldKind {
	switch ft {
	case "Btn":
		if ff&flagRadio != 0 {
			return KindRadio
		}
		if ff&flagPushButton != 0 {
			return KindButton
		}
		return KindCheckbox
	case "Tx":
		return KindText
	case "Ch":
		if ff&flagCombo != 0 {
			return KindDropdown
		}
		return KindListBox
	case "Sig":
		return KindSignature
	}
	return KindUnknown
}

// choiceOptions reads Opt, which holds either strings or [export display] pairs
func (w *walker) choiceOptions(dict types.Dict) []string {
	optObj, found := dict.Find("Opt")
	if !found {
		return nil
	}
	optArray, err := w.ctx.DereferenceArray(optObj)
	if err != nil {
		return nil
	}

	var options []string
	for _, opt := range optArray {
		if s, err := w.ctx.DereferenceStringOrHexLiteral(opt, model.V10, nil); err == nil {
			options = append(options, s)
		} else if pair, err := w.ctx.DereferenceArray(opt); err == nil && len(pair) >= 2 {
			if display, err := w.ctx.DereferenceStringOrHexLiteral(pair[1], model.V10, nil); err == nil {
				options = append(options, display)
			}
		}
	}
	return options
}

// appearanceStates lists the "on" state names of radio widgets
func (w *walker) appearanceStates(widgets []int) []string {
	seen := map[string]bool{}
	var states []string
	for _, nr := range widgets {
		wd, err := w.ctx.DereferenceDict(*types.NewIndirectRef(nr, 0))
		if err != nil || wd == nil {
			continue
		}
		apObj, found := wd.Find("AP")
		if !found {
			continue
		}
		ap, err := w.ctx.DereferenceDict(apObj)
		if err != nil || ap == nil {
			continue
		}
		nObj, found := ap.Find("N")
		if !found {
			continue
		}
		normal, err := w.ctx.DereferenceDict(nObj)
		if err != nil || normal == nil {
			continue
		}
		for state := range normal {
			if state != "Off" && !seen[state] {
				seen[state] = true
				states = append(states, state)
			}
		}
	}
	sort.Strings(states)
	return states
}

func (w *walker) pagesOf(widgets []int) []int {
	seen := map[int]bool{}
	var pages []int
	for _, nr := range widgets {
		if p, ok := w.pages[nr]; ok && !seen[p] {
			seen[p] = true
			pages = append(pages, p)
		}
	}
	sort.Ints(pages)
	return pages
}

// annotationPages maps annotation object numbers to 1-based page numbers
func annotationPages(ctx *model.Context) map[int]int {
	out := map[int]int{}
	rootDict, err := ctx.Catalog()
	if err != nil {
		return out
	}
	pagesObj, found := rootDict.Find("Pages")
	if !found {
		return out
	}

	pageNr := 0
	var walk func(obj types.Object, depth int)
	walk = func(obj types.Object, depth int) {
		if depth > 32 {
			return
		}
		node, err := ctx.DereferenceDict(obj)
		if err != nil || node == nil {
			return
		}
		if kidsObj, found := node.Find("Kids"); found {
			kids, err := ctx.DereferenceArray(kidsObj)
			if err != nil {
				return
			}
			for _, kid := range kids {
				walk(kid, depth+1)
			}
			return
		}

		pageNr++
		annotsObj, found := node.Find("Annots")
		if !found {
			return
		}
		annots, err := ctx.DereferenceArray(annotsObj)
		if err != nil {
			return
		}
		for _, a := range annots {
			if nr, ok := refNumber(a); ok {
				out[nr] = pageNr
			}
		}
	}
	walk(pagesObj, 0)
	return out
}

func refNumber(obj types.Object) (int, bool) {
	switch r := obj.(type) {
	case types.IndirectRef:
		return int(r.ObjectNumber), true
	case *types.IndirectRef:
		if r != nil {
			return int(r.ObjectNumber), true
		}
	}
	return 0, false
}

// pdfcpuDocument queues writes and applies them with pdfcpu's JSON form fill on Save
type pdfcpuDocument struct {
	source  []byte
	fields  []FieldDescriptor
	values  map[string]any
	order   []string
	flatten bool
	logger  *slog.Logger
}

func (d *pdfcpuDocument) Fields() []FieldDescriptor {
	return append([]FieldDescriptor(nil), d.fields...)
}

func (d *pdfcpuDocument) find(id string, kinds ...FieldKind) (FieldDescriptor, error) {
	for _, f := range d.fields {
		if !f.Matches(id) {
			continue
		}
		for _, k := range kinds {
			if f.Kind == k {
				if f.Locked {
					return f, ErrFieldLocked
				}
				return f, nil
			}
		}
	}
	return FieldDescriptor{}, fmt.Errorf("%w: %s", ErrFieldNotFound, id)
}

func (d *pdfcpuDocument) set(f FieldDescriptor, v any) {
	if _, ok := d.values[f.ID]; !ok {
		d.order = append(d.order, f.ID)
	}
	d.values[f.ID] = v
}

func (d *pdfcpuDocument) SetText(id, value string) error {
	f, err := d.find(id, KindText)
	if err != nil {
		return err
	}
	d.set(f, value)
	return nil
}

func (d *pdfcpuDocument) SetCheckbox(id string, checked bool) error {
	f, err := d.find(id, KindCheckbox)
	if err != nil {
		return err
	}
	d.set(f, checked)
	return nil
}

// Select rejects values outside the option list unless the field is an editable combo box
func (d *pdfcpuDocument) Select(id, value string) error {
	f, err := d.find(id, KindDropdown, KindListBox, KindRadio)
	if err != nil {
		return err
	}
	if !f.Editable && !containsExact(f.Options, value) {
		return fmt.Errorf("%w: %q is not one of %v", ErrOptionRejected, value, f.Options)
	}
	d.set(f, value)
	return nil
}

func (d *pdfcpuDocument) Flatten() error {
	d.flatten = true
	return nil
}

func (d *pdfcpuDocument) Save() ([]byte, error) {
	conf := newConfiguration()
	out := d.source

	if len(d.values) > 0 {
		payload, err := json.Marshal(d.formGroup())
		if err != nil {
			return nil, fmt.Errorf("encode form data: %w", err)
		}
		var buf bytes.Buffer
		if err := api.FillForm(bytes.NewReader(out), bytes.NewReader(payload), &buf, conf); err != nil {
			return nil, fmt.Errorf("fill form: %w", err)
		}
		out = buf.Bytes()
		d.logger.Debug("form values written", "fields", len(d.values))
	}

	if d.flatten {
		var buf bytes.Buffer
		if err := api.LockFormFields(bytes.NewReader(out), &buf, nil, newConfiguration()); err != nil {
			return nil, fmt.Errorf("lock form fields: %w", err)
		}
		out = buf.Bytes()
	}

	return append([]byte(nil), out...), nil
}

// JSON layout accepted by pdfcpu's form fill
type (
	formGroup struct {
		Header formHeader `json:"header"`
		Forms  []formData `json:"forms"`
	}
	formHeader struct {
		Source   string `json:"source"`
		Version  string `json:"version"`
		Creation string `json:"creation"`
		Producer string `json:"producer"`
	}
	formData struct {
		TextFields  []textField  `json:"textfield,omitempty"`
		CheckBoxes  []checkBox   `json:"checkbox,omitempty"`
		RadioGroups []radioGroup `json:"radiobuttongroup,omitempty"`
		ComboBoxes  []comboBox   `json:"combobox,omitempty"`
		ListBoxes   []listBox    `json:"listbox,omitempty"`
	}
	textField struct {
		Pages []int  `json:"pages"`
		ID    string `json:"id"`
		Name  string `json:"name"`
		Value string `json:"value"`
	}
	checkBox struct {
		Pages []int  `json:"pages"`
		ID    string `json:"id"`
		Name  string `json:"name"`
		Value bool   `json:"value"`
	}
	radioGroup struct {
		Pages   []int    `json:"pages"`
		ID      string   `json:"id"`
		Name    string   `json:"name"`
		Options []string `json:"options"`
		Value   string   `json:"value"`
	}
	comboBox struct {
		Pages    []int    `json:"pages"`
		ID       string   `json:"id"`
		Name     string   `json:"name"`
		Editable bool     `json:"editable"`
		Options  []string `json:"options"`
		Value    string   `json:"value"`
	}
	listBox struct {
		Pages   []int    `json:"pages"`
		ID      string   `json:"id"`
		Name    string   `json:"name"`
		Options []string `json:"options"`
		Values  []string `json:"values"`
	}
)

func (d *pdfcpuDocument) formGroup() formGroup {
	var form formData
	byID := make(map[string]FieldDescriptor, len(d.fields))
	for _, f := range d.fields {
		byID[f.ID] = f
	}

	for _, id := range d.order {
		f := byID[id]
		switch v := d.values[id].(type) {
		case bool:
			form.CheckBoxes = append(form.CheckBoxes, checkBox{Pages: f.Pages, ID: f.ID, Name: f.Name, Value: v})
		case string:
			switch f.Kind {
			case KindRadio:
				form.RadioGroups = append(form.RadioGroups, radioGroup{Pages: f.Pages, ID: f.ID, Name: f.Name, Options: f.Options, Value: v})
			case KindDropdown:
				form.ComboBoxes = append(form.ComboBoxes, comboBox{Pages: f.Pages, ID: f.ID, Name: f.Name, Editable: f.Editable, Options: f.Options, Value: v})
			case KindListBox:
				form.ListBoxes = append(form.ListBoxes, listBox{Pages: f.Pages, ID: f.ID, Name: f.Name, Options: f.Options, Values: []string{v}})
			default:
				form.TextFields = append(form.TextFields, textField{Pages: f.Pages, ID: f.ID, Name: f.Name, Value: v})
			}
		}
	}

	return formGroup{
		Header: formHeader{
			Source:   "visa-intake",
			Version:  "pdfcpu",
			Creation: time.Now().UTC().Format("2006-01-02 15:04:05 MST"),
			Producer: "visa-intake",
		},
		Forms: []formData{form},
	}
}

func containsExact(options []string, v string) bool {
	for _, o := range options {
		if o == v {
			return true
		}
	}
	return false
}

// matchOption returns the option equal to v ignoring case and surrounding space
func matchOption(options []string, v string) (string, bool) {
	want := strings.TrimSpace(v)
	for _, o := range options {
		if strings.EqualFold(strings.TrimSpace(o), want) {
			return o, true
		}
	}
	return "", false
}
