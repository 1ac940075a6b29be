package identity

// builtinTrackAliases maps sponsor and long-form venue names to the short
// name the rest of the system uses.
var builtinTrackAliases = map[string]string{
	"Rosehill Gardens":              "Rosehill",
	"Royal Randwick":                "Randwick",
	"Randwick Kensington":           "Kensington",
	"Canterbury Park":               "Canterbury",
	"The Valley":                    "Moonee Valley",
	"Sportsbet Sandown":             "Sandown",
	"Sandown Lakeside":              "Sandown",
	"Sportsbet-Ballarat":            "Ballarat",
	"Morphettville Parks":           "Morphettville",
	"Gold Coast Turf Club":          "Gold Coast",
	"Belmont Park":                  "Belmont",
	"Pakenham Synthetic":            "Pakenham",
	"Geelong Synthetic":             "Geelong",
	"Ladbrokes Cannon Park":         "Cairns",
	"Thomas Farms RC Murray Bridge": "Murray Bridge",
}
