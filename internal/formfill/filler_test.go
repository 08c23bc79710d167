package formfill

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-visa-intake/internal/transform"
)

type fakeEngine struct {
	info    Info
	err     error
	doc     *fakeDocument
	loadErr error
}

func (e *fakeEngine) Inspect([]byte) (Info, error) { return e.info, e.err }

func (e *fakeEngine) Load([]byte) (Document, error) {
	if e.loadErr != nil {
		return nil, e.loadErr
	}
	if e.doc == nil {
		e.doc = newFakeDocument(e.info.Fields)
	}
	return e.doc, nil
}

// fakeDocument records writes. Like most engines it refuses choice values
// outside the option list.
type fakeDocument struct {
	fields     []FieldDescriptor
	text       map[string]string
	checks     map[string]bool
	selections map[string]string
	calls      []string
	saveErr    error
}

func newFakeDocument(fields []FieldDescriptor) *fakeDocument {
	return &fakeDocument{
		fields:     fields,
		text:       map[string]string{},
		checks:     map[string]bool{},
		selections: map[string]string{},
	}
}

func (d *fakeDocument) Fields() []FieldDescriptor { return d.fields }

func (d *fakeDocument) SetText(id, value string) error {
	d.calls = append(d.calls, "text:"+id)
	d.text[id] = value
	return nil
}

func (d *fakeDocument) SetCheckbox(id string, checked bool) error {
	d.calls = append(d.calls, "checkbox:"+id)
	d.checks[id] = checked
	return nil
}

func (d *fakeDocument) Select(id, value string) error {
	d.calls = append(d.calls, "select:"+id)
	for _, f := range d.fields {
		if f.ID == id && !f.Editable && !containsExact(f.Options, value) {
			return fmt.Errorf("%w: %q", ErrOptionRejected, value)
		}
	}
	d.selections[id] = value
	return nil
}

func (d *fakeDocument) Flatten() error {
	d.calls = append(d.calls, "flatten")
	return nil
}

func (d *fakeDocument) Save() ([]byte, error) {
	d.calls = append(d.calls, "save")
	if d.saveErr != nil {
		return nil, d.saveErr
	}
	return []byte("%PDF-filled"), nil
}

func testFiller(e Engine, opts ...FillerOption) *Filler {
	opts = append([]FillerOption{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return NewFiller(e, opts...)
}

func visaForm() Info {
	return Info{
		PageCount: 2,
		Fields: []FieldDescriptor{
			{ID: "10", Name: "surname", Kind: KindText},
			{ID: "11", Name: "given_names", Kind: KindText},
			{ID: "12", Name: "date_of_birth", Kind: KindText},
			{ID: "13", Name: "married", Kind: KindCheckbox},
			{ID: "14", Name: "nationality", Kind: KindDropdown, Options: []string{"United Kingdom", "India", "Philippines"}},
			{ID: "15", Name: "gender", Kind: KindRadio, Options: []string{"Male", "Female", "Other"}},
			{ID: "16", Name: "officer_notes", Kind: KindText, Locked: true},
			{ID: "17", Name: "purpose", Kind: KindListBox, Options: []string{"Tourism", "Business"}},
		},
	}
}

func TestFiller_Fill(t *testing.T) {
	engine := &fakeEngine{info: visaForm()}
	f := testFiller(engine)

	res, err := f.Fill(context.Background(), []byte("%PDF"), []Population{
		{FieldID: "surname", Value: "smith", Transform: transform.KindUppercase},
		{FieldID: "given_names", Value: "John"},
		{FieldID: "date_of_birth", Value: "1990-01-15", Transform: transform.KindDate},
		{FieldID: "married", Value: "Yes"},
		{FieldID: "nationality", Value: "india"},
		{FieldID: "15", Value: "FEMALE"},
		{FieldID: "purpose", Value: "business"},
	}, Options{DestinationCountry: "USA"})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, 7, res.PopulatedFields)
	assert.Equal(t, 0, res.SkippedFields)
	assert.Empty(t, res.Errors)
	assert.Equal(t, []byte("%PDF-filled"), res.Data)

	doc := engine.doc
	assert.Equal(t, "SMITH", doc.text["10"])
	assert.Equal(t, "01/15/1990", doc.text["12"], "dates follow the destination country's format")
	assert.True(t, doc.checks["13"])
	assert.Equal(t, "India", doc.selections["14"], "option matched ignoring case")
	assert.Equal(t, "Female", doc.selections["15"])
	assert.Equal(t, "Business", doc.selections["17"])
	assert.NotContains(t, doc.calls, "flatten")
}

func TestFiller_ExplicitTargetFormatWins(t *testing.T) {
	engine := &fakeEngine{info: visaForm()}
	f := testFiller(engine)

	_, err := f.Fill(context.Background(), []byte("%PDF"), []Population{
		{FieldID: "date_of_birth", Value: "15/01/1990", Transform: transform.KindDate, TargetFormat: "YYYY-MM-DD"},
	}, Options{DestinationCountry: "USA"})
	require.NoError(t, err)
	assert.Equal(t, "1990-01-15", engine.doc.text["12"])
}

func TestFiller_SuccessThreshold(t *testing.T) {
	fields := make([]FieldDescriptor, 10)
	for i := range fields {
		fields[i] = FieldDescriptor{ID: fmt.Sprint(i), Name: fmt.Sprintf("f%d", i), Kind: KindText}
	}

	populations := func(missing int) []Population {
		out := make([]Population, 10)
		for i := range out {
			id := fmt.Sprintf("f%d", i)
			if i < missing {
				id = fmt.Sprintf("absent%d", i)
			}
			out[i] = Population{FieldID: id, Value: "v"}
		}
		return out
	}

	tests := []struct {
		name      string
		missing   int
		ratio     float64
		populated int
		success   bool
	}{
		{"three missing", 3, 0, 7, true},
		{"six missing", 6, 0, 4, false},
		{"exactly half is not enough", 5, 0, 5, false},
		{"stricter ratio", 3, 0.8, 7, false},
		{"none missing", 0, 0, 10, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := testFiller(&fakeEngine{info: Info{PageCount: 1, Fields: fields}})
			res, err := f.Fill(context.Background(), []byte("%PDF"), populations(tt.missing), Options{SuccessRatio: tt.ratio})
			require.NoError(t, err)
			assert.Equal(t, tt.populated, res.PopulatedFields)
			assert.Equal(t, tt.missing, res.SkippedFields)
			assert.Equal(t, tt.success, res.Success)
			assert.Len(t, res.Errors, tt.missing)
			if tt.success {
				assert.NotNil(t, res.Data)
			} else {
				assert.Nil(t, res.Data)
			}
		})
	}
}

func TestFiller_ConfiguredSuccessRatio(t *testing.T) {
	f := testFiller(&fakeEngine{info: visaForm()}, WithSuccessRatio(0.9))
	res, err := f.Fill(context.Background(), []byte("%PDF"), []Population{
		{FieldID: "surname", Value: "Smith"},
		{FieldID: "missing", Value: "x"},
	}, Options{})
	require.NoError(t, err)
	assert.False(t, res.Success)
}

func TestFiller_FieldErrors(t *testing.T) {
	engine := &fakeEngine{info: visaForm()}
	f := testFiller(engine)

	res, err := f.Fill(context.Background(), []byte("%PDF"), []Population{
		{FieldID: "surname", Value: "Smith"},
		{FieldID: "given_names", Value: "John"},
		{FieldID: "married", Value: "no"},
		{FieldID: "nationality", Value: "Atlantis"},
		{FieldID: "officer_notes", Value: "approve"},
		{FieldID: "passport_photo", Value: "x"},
	}, Options{})
	require.NoError(t, err)

	assert.Equal(t, 3, res.PopulatedFields)
	assert.Equal(t, 3, res.SkippedFields)
	assert.False(t, res.Success)
	assert.False(t, engine.doc.checks["13"])

	byField := map[string]FieldError{}
	for _, fe := range res.Errors {
		byField[fe.FieldID] = fe
	}
	assert.ErrorIs(t, byField["nationality"].Err, ErrOptionRejected)
	assert.Equal(t, "field is read-only", byField["officer_notes"].Reason)
	assert.Equal(t, "field not found", byField["passport_photo"].Reason)
	assert.Contains(t, engine.doc.calls, "select:14", "unmatched option is still attempted")
}

func TestFiller_EditableDropdownAcceptsFreeText(t *testing.T) {
	engine := &fakeEngine{info: Info{PageCount: 1, Fields: []FieldDescriptor{
		{ID: "1", Name: "city", Kind: KindDropdown, Editable: true, Options: []string{"London"}},
	}}}
	res, err := testFiller(engine).Fill(context.Background(), []byte("%PDF"), []Population{{FieldID: "city", Value: "Leeds"}}, Options{})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "Leeds", engine.doc.selections["1"])
}

func TestFiller_HandlerOrder(t *testing.T) {
	engine := &fakeEngine{info: Info{PageCount: 1, Fields: []FieldDescriptor{
		{ID: "1", Name: "consent", Kind: KindRadio, Options: []string{"Yes", "No"}},
		{ID: "2", Name: "consent", Kind: KindCheckbox},
	}}}
	_, err := testFiller(engine).Fill(context.Background(), []byte("%PDF"), []Population{{FieldID: "consent", Value: "yes"}}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"checkbox:2", "save"}, engine.doc.calls)
}

func TestFiller_FlattenAfterWrites(t *testing.T) {
	engine := &fakeEngine{info: visaForm()}
	res, err := testFiller(engine).Fill(context.Background(), []byte("%PDF"), []Population{
		{FieldID: "surname", Value: "Smith"},
		{FieldID: "married", Value: "x"},
	}, Options{Flatten: true})
	require.NoError(t, err)
	assert.True(t, res.Flattened)
	assert.Equal(t, []string{"text:10", "checkbox:13", "flatten", "save"}, engine.doc.calls)
}

func TestFiller_StructuralRejection(t *testing.T) {
	tests := []struct {
		name   string
		engine *fakeEngine
		want   string
	}{
		{"encrypted", &fakeEngine{info: Info{Encrypted: true, PageCount: 1}}, "encrypted"},
		{"no fields", &fakeEngine{info: Info{PageCount: 1}}, "no fillable form fields"},
		{"only buttons", &fakeEngine{info: Info{PageCount: 1, Fields: []FieldDescriptor{{ID: "1", Kind: KindButton}}}}, "no fillable form fields"},
		{"unreadable", &fakeEngine{err: errors.New("not a PDF")}, "cannot read PDF"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := testFiller(tt.engine).Fill(context.Background(), []byte("x"), []Population{{FieldID: "a", Value: "b"}}, Options{})
			assert.Nil(t, res)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrFormStructuralInvalid)
			assert.Contains(t, err.Error(), tt.want)

			var se *StructuralError
			require.True(t, errors.As(err, &se))
			assert.False(t, se.Report.IsValid)
			assert.Nil(t, tt.engine.doc, "nothing is loaded for writing")
		})
	}
}

func TestFiller_LoadFailureIsStructural(t *testing.T) {
	engine := &fakeEngine{info: visaForm(), loadErr: errors.New("xref broken")}
	_, err := testFiller(engine).Fill(context.Background(), []byte("%PDF"), nil, Options{})
	assert.ErrorIs(t, err, ErrFormStructuralInvalid)
}

func TestFiller_SaveError(t *testing.T) {
	engine := &fakeEngine{info: visaForm()}
	engine.doc = newFakeDocument(engine.info.Fields)
	engine.doc.saveErr = errors.New("disk full")

	_, err := testFiller(engine).Fill(context.Background(), []byte("%PDF"), []Population{{FieldID: "surname", Value: "Smith"}}, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestFiller_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := testFiller(&fakeEngine{info: visaForm()}).Fill(ctx, []byte("%PDF"), []Population{{FieldID: "surname", Value: "x"}}, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFiller_TransformFailureWritesRawValue(t *testing.T) {
	engine := &fakeEngine{info: visaForm()}
	_, err := testFiller(engine).Fill(context.Background(), []byte("%PDF"), []Population{
		{FieldID: "date_of_birth", Value: "sometime in spring", Transform: transform.KindDate},
	}, Options{DestinationCountry: "GBR"})
	require.NoError(t, err)
	assert.Equal(t, "sometime in spring", engine.doc.text["12"])
}
