// Package exportsvc renders admin data exports as xlsx workbooks.
package exportsvc

import (
	"bytes"
	"fmt"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/mwanzohq/mwanzo/core/account"
)

const usersSheet = "Users"

var userHeader = []string{"ID", "First Name", "Last Name", "Email", "Admission Number", "Role", "Status", "Confirmed", "Created At"}

// UsersWorkbook renders the user roster as a one-sheet workbook with a
// bold, filterable header and heuristic column widths.
func UsersWorkbook(users []account.User) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", usersSheet); err != nil {
		return nil, errors.Wrap(err, "renaming sheet")
	}

	for col, h := range userHeader {
		cell := fmt.Sprintf("%s1", colName(col+1))
		if err := f.SetCellStr(usersSheet, cell, h); err != nil {
			return nil, errors.Wrapf(err, "setting cell %s", cell)
		}
	}
	if bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		end := colName(len(userHeader)) + "1"
		_ = f.SetCellStyle(usersSheet, "A1", end, bold)
		_ = f.AutoFilter(usersSheet, "A1:"+end, nil)
	}

	for r, usr := range users {
		row := []string{
			usr.ID,
			usr.FirstName,
			usr.LastName,
			usr.Email,
			usr.AdmissionNumber.String,
			string(usr.Role),
			string(usr.Status),
			fmt.Sprintf("%t", usr.EmailConfirmed),
			usr.CreatedAt.Format("2006-01-02 15:04"),
		}
		for c, val := range row {
			cell := fmt.Sprintf("%s%d", colName(c+1), r+2)
			if err := f.SetCellStr(usersSheet, cell, val); err != nil {
				return nil, errors.Wrapf(err, "setting cell %s", cell)
			}
		}
	}

	// heuristic width: header length vs the first rows of data
	for c := 1; c <= len(userHeader); c++ {
		max := len(userHeader[c-1])
		for r := 0; r < len(users) && r < 50; r++ {
			if l := cellLen(users[r], c-1); l > max {
				max = l
			}
		}
		w := float64(max) * 0.9
		if w < 12 {
			w = 12
		}
		if w > 40 {
			w = 40
		}
		_ = f.SetColWidth(usersSheet, colName(c), colName(c), w)
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, errors.Wrap(err, "writing workbook")
	}
	return buf, nil
}

func cellLen(usr account.User, col int) int {
	switch col {
	case 0:
		return len(usr.ID)
	case 1:
		return len(usr.FirstName)
	case 2:
		return len(usr.LastName)
	case 3:
		return len(usr.Email)
	case 4:
		return len(usr.AdmissionNumber.String)
	case 5:
		return len(usr.Role)
	case 6:
		return len(usr.Status)
	default:
		return 0
	}
}

// colName converts 1-based column numbers to sheet names: 1 -> A; 27 -> AA.
func colName(n int) string {
	s := ""
	for n > 0 {
		n--
		s = string(rune('A'+(n%26))) + s
		n /= 26
	}
	return s
}
