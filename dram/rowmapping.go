package dram

import "fmt"

// Vendor selects a row-mapping profile. Some vendors scramble row addressing
// internally, so the row selected on the bus is not the row the test program
// thinks it is addressing.
type Vendor string

// The supported row-mapping profiles.
const (
	// VendorGeneric applies no remapping.
	VendorGeneric Vendor = "generic"

	// VendorTypeA folds bit 3 of the row into the low three bits. The
	// transform is its own inverse.
	VendorTypeA Vendor = "typeA"

	// VendorTypeB rotates the low three row bits left by one.
	VendorTypeB Vendor = "typeB"
)

// A RowMapping translates between logical rows (as addressed by test
// software) and physical rows (as selected on the DRAM bus). The two
// directions are mutual inverses over the full row range. RowMappings are
// stateless and safe to share.
type RowMapping struct {
	vendor     Vendor
	toPhysical func(row int) int
	toLogical  func(row int) int
}

// IdentityMapping returns the mapping of VendorGeneric: no remapping at all.
func IdentityMapping() RowMapping {
	m, _ := MappingForVendor(VendorGeneric)
	return m
}

// MappingForVendor returns the row mapping of the given vendor profile.
func MappingForVendor(vendor Vendor) (RowMapping, error) {
	switch vendor {
	case VendorGeneric:
		identity := func(row int) int { return row }
		return RowMapping{vendor: vendor, toPhysical: identity, toLogical: identity}, nil
	case VendorTypeA:
		fold := func(row int) int {
			return row ^ ((row >> 3) & 0x7)
		}
		return RowMapping{vendor: vendor, toPhysical: fold, toLogical: fold}, nil
	case VendorTypeB:
		rotl := func(row int) int {
			return row&^0x7 | (row<<1)&0x6 | (row>>2)&0x1
		}
		rotr := func(row int) int {
			return row&^0x7 | (row>>1)&0x3 | (row<<2)&0x4
		}
		return RowMapping{vendor: vendor, toPhysical: rotl, toLogical: rotr}, nil
	default:
		return RowMapping{}, fmt.Errorf("unknown row-mapping vendor %q", vendor)
	}
}

// Vendor returns the profile this mapping was built for.
func (m RowMapping) Vendor() Vendor {
	return m.vendor
}

// LogicalToPhysical maps a row index used by the test program to the row
// actually selected on the bus.
func (m RowMapping) LogicalToPhysical(row int) int {
	return m.toPhysical(row)
}

// PhysicalToLogical maps a row selected on the bus back to the index the
// test program uses for it.
func (m RowMapping) PhysicalToLogical(row int) int {
	return m.toLogical(row)
}
