package schema

// CoreChapterTable represents the 'core.chapter' table
type CoreChapterTable struct {
	Table     string
	ID        string
	TitleID   string
	Number    string
	Name      string
	Thumbnail string
	CreatedAt string
	UpdatedAt string
}

// CoreChapter is the schema definition for core.chapter
var CoreChapter = CoreChapterTable{
	Table:     "core.chapter",
	ID:        "id",
	TitleID:   "titleid",
	Number:    "chapternumber",
	Name:      "name",
	Thumbnail: "thumbnail",
	CreatedAt: "createdat",
	UpdatedAt: "updatedat",
}

func (t CoreChapterTable) Columns() []string {
	return []string{
		t.ID, t.TitleID, t.Number, t.Name, t.Thumbnail, t.CreatedAt, t.UpdatedAt,
	}
}
