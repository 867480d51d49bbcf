package importer

import (
	"fmt"
	"io"
)

func init() {
	Register(&authorityCSVDecoder{})
}

// authorityCSVDecoder reads the flat list of local authorities:
//
//	Local authority code,Name (eng),Name (cym)
//	W06000001,Isle of Anglesey,Ynys Môn
type authorityCSVDecoder struct{}

func (d *authorityCSVDecoder) Layout() Layout      { return AuthorityCodeCSV }
func (d *authorityCSVDecoder) Description() string { return "Authority codes with English and Welsh names (CSV)" }

func (d *authorityCSVDecoder) Validate(cols ColumnMapping) error {
	return cols.require(AuthorityCodeCSV, AuthCode, AuthNameEng, AuthNameCym)
}

func (d *authorityCSVDecoder) Decode(r io.Reader, cols ColumnMapping, filters *Filters, emit Emitter) error {
	src, err := newCSVSource(AuthorityCodeCSV, r)
	if err != nil {
		return err
	}

	codeName, _ := cols.Lookup(AuthCode)
	codeIdx, err := src.column(codeName)
	if err != nil {
		return err
	}
	nameIdx := make(map[string]int, len(nameColumns))
	for _, nc := range nameColumns {
		header, _ := cols.Lookup(nc.col)
		i, err := src.column(header)
		if err != nil {
			return err
		}
		nameIdx[nc.lang] = i
	}

	return src.each(emit, func(row []string) error {
		code := row[codeIdx]
		if code == "" {
			return emit.Reject(&FormatError{Layout: AuthorityCodeCSV, Record: src.row, Field: codeName,
				Err: fmt.Errorf("%w: authority code", errMissingField)})
		}
		if !filters.AcceptArea(code) {
			return nil
		}

		names := make(map[string]string, len(nameIdx))
		for lang, i := range nameIdx {
			if row[i] != "" {
				names[lang] = row[i]
			}
		}
		return emit.Emit(Record{Position: src.row, AreaCode: code, Names: names})
	})
}
