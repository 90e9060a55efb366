// Package naming resolves remote items to local target names and decides
// which items a sync pass fetches.
package naming

import (
	"strings"

	"github.com/okian/nutrimon/internal/domain/model"
)

// CSVExt is the extension every data target carries.
const CSVExt = ".csv"

// UsersTarget returns the canonical local name of the credentials file.
func UsersTarget(usersName string) string {
	return usersName + CSVExt
}

// DataTarget resolves a remote item to its local data file name.
// ok is false when the item is not eligible for a data sync.
//
// Any item whose base name equals usersName (case-insensitive, with or without
// .csv) becomes the canonical users target. Spreadsheets get .csv appended.
// Other names must end in .csv and must not mention usersName.
func DataTarget(ref model.RemoteFileRef, usersName string) (string, bool) {
	if ref.IsFolder() || ref.Kind == model.KindImage || hidden(ref.Name) {
		return "", false
	}
	name := strings.TrimSpace(ref.Name)
	if name == "" {
		return "", false
	}
	lower := strings.ToLower(name)
	users := strings.ToLower(usersName)

	if strings.TrimSuffix(lower, CSVExt) == users {
		return UsersTarget(usersName), true
	}
	if ref.Kind == model.KindSpreadsheet && !strings.HasSuffix(lower, CSVExt) {
		name += CSVExt
		lower += CSVExt
	}
	if !strings.HasSuffix(lower, CSVExt) {
		return "", false
	}
	if users != "" && strings.Contains(lower, users) {
		return "", false
	}
	return name, true
}

// IconTarget resolves an image item to its asset name. Only images qualify.
func IconTarget(ref model.RemoteFileRef) (string, bool) {
	if ref.Kind != model.KindImage || hidden(ref.Name) || strings.TrimSpace(ref.Name) == "" {
		return "", false
	}
	return ref.Name, true
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
