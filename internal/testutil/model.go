package testutil

import "github.com/roach88/querypipe/internal/ir"

// Entity types shared by package tests. Shapes follow a small Northwind-like
// schema so denylist entries and joins have something real to act on.
var (
	Customer = ir.NewStruct("Customer", false,
		ir.Field{Name: "CustomerID", Type: ir.String},
		ir.Field{Name: "Name", Type: ir.String},
		ir.Field{Name: "City", Type: ir.String},
		ir.Field{Name: "Age", Type: ir.Int64},
	)

	Order = ir.NewStruct("Order", false,
		ir.Field{Name: "OrderID", Type: ir.Int64},
		ir.Field{Name: "CustomerID", Type: ir.String},
		ir.Field{Name: "Freight", Type: ir.Int64},
		ir.Field{Name: "ShipCity", Type: ir.String},
		ir.Field{Name: "ShipName", Type: ir.String},
	)

	// Person has exactly the fields [Name, Age].
	Person = ir.NewStruct("Person", false,
		ir.Field{Name: "Name", Type: ir.String},
		ir.Field{Name: "Age", Type: ir.Int64},
	)

	// Blob has no fields and no order.
	Blob = ir.NewStruct("Blob", false)
)

// CustomerRows returns the Customers fixture.
func CustomerRows() []ir.IRObject {
	return []ir.IRObject{
		{"CustomerID": ir.IRString("ALFKI"), "Name": ir.IRString("Alfreds"), "City": ir.IRString("Berlin"), "Age": ir.IRInt(41)},
		{"CustomerID": ir.IRString("ANATR"), "Name": ir.IRString("Ana Trujillo"), "City": ir.IRString("México D.F."), "Age": ir.IRInt(29)},
		{"CustomerID": ir.IRString("BERGS"), "Name": ir.IRString("Berglunds"), "City": ir.IRString("Luleå"), "Age": ir.IRInt(35)},
		{"CustomerID": ir.IRString("BLAUS"), "Name": ir.IRString("Blauer See"), "City": ir.IRString("Mannheim"), "Age": ir.IRInt(29)},
	}
}

// OrderRows returns the Orders fixture.
func OrderRows() []ir.IRObject {
	return []ir.IRObject{
		{"OrderID": ir.IRInt(10643), "CustomerID": ir.IRString("ALFKI"), "Freight": ir.IRInt(29), "ShipCity": ir.IRString("Berlin"), "ShipName": ir.IRString("Alfreds")},
		{"OrderID": ir.IRInt(10692), "CustomerID": ir.IRString("ALFKI"), "Freight": ir.IRInt(61), "ShipCity": ir.IRString("Berlin"), "ShipName": ir.IRString("Alfreds")},
		{"OrderID": ir.IRInt(10308), "CustomerID": ir.IRString("ANATR"), "Freight": ir.IRInt(1), "ShipCity": ir.IRString("México D.F."), "ShipName": ir.IRString("Ana Trujillo")},
	}
}

// PersonRows returns the People fixture.
func PersonRows() []ir.IRObject {
	return []ir.IRObject{
		{"Name": ir.IRString("Ada"), "Age": ir.IRInt(36)},
		{"Name": ir.IRString("Grace"), "Age": ir.IRInt(45)},
	}
}
