package bfrt

// P4Id identifies an object inside a P4Info document. The top byte is a
// resource-kind prefix, the low 24 bits are allocated per resource.
type P4Id uint32

// Resource-kind prefixes. The 0x8x range is reserved for target
// extensions; the selector pair lives there.
const (
	PrefixAction        uint32 = 0x01
	PrefixTable         uint32 = 0x02
	PrefixActionProfile uint32 = 0x11
	PrefixCounter       uint32 = 0x12
	PrefixMeter         uint32 = 0x14
	PrefixDigest        uint32 = 0x17

	PrefixActionSelector          uint32 = 0x81
	PrefixActionSelectorGetMember uint32 = 0x82
)

// MakeBfRtID rebases id under the given resource prefix, keeping the low
// 24 bits.
func MakeBfRtID(id P4Id, prefix uint32) P4Id {
	return P4Id(prefix<<24 | uint32(id)&0xffffff)
}

// isOfType reports whether id carries the given prefix.
func isOfType(id P4Id, prefix uint32) bool {
	return uint32(id)>>24 == prefix
}

// Synthetic data and key field identifiers. User-defined fields keep the
// ids assigned in P4Info, which stay below 1<<16.
const (
	dataFieldIDStart uint32 = 1 << 16

	DataActionMemberID     = dataFieldIDStart + 1
	DataSelectorGroupID    = dataFieldIDStart + 2
	DataActionMemberStatus = dataFieldIDStart + 3
	DataMaxGroupSize       = dataFieldIDStart + 4
	DataHashValue          = dataFieldIDStart + 5
	DataCounterIndex       = dataFieldIDStart + 6
	DataCounterSpecBytes   = dataFieldIDStart + 7
	DataCounterSpecPkts    = dataFieldIDStart + 8
	DataMeterIndex         = dataFieldIDStart + 9
	DataMeterCirKbps       = dataFieldIDStart + 10
	DataMeterPirKbps       = dataFieldIDStart + 11
	DataMeterCbsKbits      = dataFieldIDStart + 12
	DataMeterPbsKbits      = dataFieldIDStart + 13
	DataMeterCirPps        = dataFieldIDStart + 14
	DataMeterPirPps        = dataFieldIDStart + 15
)
