package vst3

// Interface IDs
var (
	IIDFUnknown = InlineUID(0x00000000, 0x00000000, 0xC0000000, 0x00000046)

	IIDPluginBase     = InlineUID(0x22888DDB, 0x156E45AE, 0x8358B348, 0x08190625)
	IIDPluginFactory  = InlineUID(0x7A4D811C, 0x52114A1F, 0xAED9D2EE, 0x0B43BF9F)
	IIDPluginFactory2 = InlineUID(0x0007B650, 0xF24B4C0B, 0xA464EDB9, 0xF00B2ABB)
	IIDPluginFactory3 = InlineUID(0x4555A2AB, 0xC1234E57, 0x9B122910, 0x36878931)

	IIDComponent                   = InlineUID(0xE831FF31, 0xF2D54301, 0x928EBBEE, 0x25697802)
	IIDAudioProcessor              = InlineUID(0x42043F99, 0xB7DA453C, 0xA569E79D, 0x9AAEC33D)
	IIDEditController              = InlineUID(0xDCD7BBE3, 0x7742448D, 0xA874AACC, 0x979C759E)
	IIDConnectionPoint             = InlineUID(0x70A4156F, 0x6E6E4026, 0x989148BF, 0xAA60D8D1)
	IIDMidiMapping                 = InlineUID(0xDF0FF9F7, 0x49B74669, 0xB63AB732, 0x7ADBF5E5)
	IIDUnitInfo                    = InlineUID(0x3D4BD6B5, 0x913A4FD2, 0xA886E768, 0xA5EB92C1)
	IIDPlugView                    = InlineUID(0x5BC32507, 0xD06049EA, 0xA6151B52, 0x2B755B29)
	IIDPlugViewContentScaleSupport = InlineUID(0x65ED9690, 0x8AC44525, 0x8AADEF7A, 0x72EA703F)

	IIDHostApplication  = InlineUID(0x58E595CC, 0xDB2D4969, 0x8B6AAF8C, 0x36A664E5)
	IIDComponentHandler = InlineUID(0x93A0BEA3, 0x0BD045DB, 0x8E890B0C, 0xC1E46AC6)
	IIDBStream          = InlineUID(0xC3BF6EA2, 0x30994752, 0x9B6BF990, 0x1EE33E9B)
	IIDParameterChanges = InlineUID(0xA4779663, 0x0BB64A56, 0xB44384A8, 0x466FEB9D)
	IIDParamValueQueue  = InlineUID(0x01263A18, 0xED074F6F, 0x98C9D356, 0x4686F9BA)
	IIDEventList        = InlineUID(0x3A2C4214, 0x346349FE, 0xB2C4F397, 0xB9695A44)
	IIDMessage          = InlineUID(0x936F033B, 0xC6C047DB, 0xBB0882F8, 0x13C1E613)
	IIDAttributeList    = InlineUID(0x1E5F0AEB, 0xCC7F4533, 0xA2544011, 0x38AD5EE4)
	IIDPlugFrame        = InlineUID(0x367FAF01, 0xAFA94693, 0x8D4DA2A0, 0xED0882A3)
)
