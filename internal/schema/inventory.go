package schema

// Column headers for the inventory import sheet. Only the first five are
// required; extra columns in an uploaded sheet are ignored.
const (
	ColLocation       = "Location"
	ColBin            = "Bin"
	ColPalletID       = "PalletID"
	ColItemNumber     = "ItemNumber"
	ColSystemQuantity = "SystemQuantity"
	ColDescription    = "Description"
	ColUOM            = "UOM"
	ColExpiryDate     = "ExpiryDate"
	ColStatus         = "Status"
)

// InventoryFields defines the expected columns for an inventory import row.
var InventoryFields = []FieldSpec{
	{Name: ColLocation, Type: FieldText, Required: true},
	{Name: ColBin, Type: FieldText, Required: true},
	{Name: ColPalletID, Type: FieldText, Required: true},
	{Name: ColItemNumber, Type: FieldText, Required: true},
	{Name: ColSystemQuantity, Type: FieldInteger, Required: true},
	{Name: ColDescription, Type: FieldText},
	{Name: ColUOM, Type: FieldText, Default: "Unit"},
	{Name: ColExpiryDate, Type: FieldDate},
	{Name: ColStatus, Type: FieldEnum, EnumValues: []string{"Active", "Inactive", "Pending"}, Default: "Active"},
}
