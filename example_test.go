package qvd_test

import (
	"bytes"
	"fmt"

	"github.com/qvdio/qvd"
)

func ExampleWriteTable() {
	table := qvd.NewTable("Name", "Amount")
	table.AppendRow([]qvd.Value{qvd.Str("Widget"), qvd.Int(3)})
	table.AppendRow([]qvd.Value{qvd.Str("Gadget"), qvd.Int(7)})

	var buf bytes.Buffer
	opts := qvd.DefaultWriteOptions()
	opts.TableName = "Orders"
	if err := qvd.WriteTable(&buf, table, opts); err != nil {
		fmt.Println("write failed:", err)
		return
	}

	out, err := qvd.ReadTable(bytes.NewReader(buf.Bytes()), nil)
	if err != nil {
		fmt.Println("read failed:", err)
		return
	}

	v, _ := out.GetByName(1, "Name")
	fmt.Println(v.Display())
	// Output: Gadget
}
