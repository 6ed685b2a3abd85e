package scripts

import (
	"strings"

	"tickbot.dev/internal/botapi"
)

// GatherProfile tells the shared gathering loop what to harvest and what to
// do with the result.
type GatherProfile struct {
	Name  string
	Skill string
	Type  string
	// Noun is used in chat ("trees", "rocks").
	Noun       string
	ObjectIDs  []int
	ProductIDs []int
	// DropWhenFull drops products instead of banking them.
	DropWhenFull bool
	Area         *botapi.Area
}

func (p GatherProfile) WithArea(a botapi.Area) GatherProfile {
	p.Area = &a
	return p
}

type preset struct {
	aliases    []string
	objectIDs  []int
	productIDs []int
}

var woodcuttingPresets = map[string]preset{
	"normal": {aliases: []string{"tree", "regular"}, objectIDs: []int{0, 1, 70}, productIDs: []int{14}},
	"oak":    {objectIDs: []int{306}, productIDs: []int{632}},
	"willow": {objectIDs: []int{307}, productIDs: []int{633}},
	"maple":  {objectIDs: []int{308}, productIDs: []int{634}},
	"yew":    {objectIDs: []int{309}, productIDs: []int{635}},
	"magic":  {objectIDs: []int{310}, productIDs: []int{636}},
}

var miningPresets = map[string]preset{
	"copper":     {objectIDs: []int{100, 101}, productIDs: []int{150}},
	"tin":        {objectIDs: []int{104, 105}, productIDs: []int{202}},
	"iron":       {objectIDs: []int{102, 103}, productIDs: []int{151}},
	"coal":       {objectIDs: []int{110, 111}, productIDs: []int{155}},
	"gold":       {objectIDs: []int{112, 113}, productIDs: []int{152}},
	"mithril":    {aliases: []string{"mith"}, objectIDs: []int{106, 107}, productIDs: []int{153}},
	"adamantite": {aliases: []string{"addy"}, objectIDs: []int{108, 109}, productIDs: []int{154}},
	"runite":     {aliases: []string{"rune"}, objectIDs: []int{210}, productIDs: []int{409}},
}

var fishingPresets = map[string]preset{
	"net":     {aliases: []string{"shrimp"}, objectIDs: []int{192}, productIDs: []int{349, 351}},
	"fly":     {aliases: []string{"lure"}, objectIDs: []int{193}, productIDs: []int{358, 356}},
	"cage":    {aliases: []string{"lobster"}, objectIDs: []int{194}, productIDs: []int{372}},
	"harpoon": {aliases: []string{"swordfish"}, objectIDs: []int{194}, productIDs: []int{366, 369}},
	"shark":   {objectIDs: []int{261}, productIDs: []int{545}},
}

// resolve maps a type or alias to its preset; unknown types fall back to def.
func resolve(presets map[string]preset, typ, def string) (string, preset) {
	typ = strings.ToLower(strings.TrimSpace(typ))
	if p, ok := presets[typ]; ok {
		return typ, p
	}
	for name, p := range presets {
		for _, a := range p.aliases {
			if a == typ {
				return name, p
			}
		}
	}
	return def, presets[def]
}

func profile(name, skill, noun, typ string, p preset) GatherProfile {
	return GatherProfile{
		Name:       name,
		Skill:      skill,
		Type:       typ,
		Noun:       noun,
		ObjectIDs:  append([]int(nil), p.objectIDs...),
		ProductIDs: append([]int(nil), p.productIDs...),
	}
}

// Woodcutting returns the tree preset for typ, "normal" if unknown.
func Woodcutting(typ string) GatherProfile {
	name, p := resolve(woodcuttingPresets, typ, "normal")
	return profile("Woodcutting Bot", "woodcutting", "trees", name, p)
}

// Mining returns the rock preset for typ, "copper" if unknown.
func Mining(typ string) GatherProfile {
	name, p := resolve(miningPresets, typ, "copper")
	return profile("Mining Bot", "mining", "rocks", name, p)
}

// Fishing returns the spot preset for typ, "net" if unknown.
func Fishing(typ string) GatherProfile {
	name, p := resolve(fishingPresets, typ, "net")
	return profile("Fishing Bot", "fishing", "fishing spots", name, p)
}

// Locations are named woodcutting areas.
var Locations = map[string]botapi.Area{
	"varrock":    {MinX: 100, MaxX: 160, MinY: 480, MaxY: 550},
	"falador":    {MinX: 280, MaxX: 340, MinY: 510, MaxY: 580},
	"draynor":    {MinX: 190, MaxX: 240, MinY: 600, MaxY: 660},
	"portsarim":  {MinX: 250, MaxX: 290, MinY: 620, MaxY: 670},
	"karamja":    {MinX: 350, MaxX: 400, MinY: 660, MaxY: 710},
	"alkharid":   {MinX: 70, MaxX: 120, MinY: 660, MaxY: 720},
	"lumbridge":  {MinX: 100, MaxX: 160, MinY: 620, MaxY: 680},
	"edgeville":  {MinX: 190, MaxX: 250, MinY: 420, MaxY: 480},
	"taverly":    {MinX: 350, MaxX: 400, MinY: 470, MaxY: 530},
	"seers":      {MinX: 480, MaxX: 550, MinY: 420, MaxY: 480},
	"barbarian":  {MinX: 210, MaxX: 260, MinY: 490, MaxY: 540},
	"rimmington": {MinX: 300, MaxX: 350, MinY: 640, MaxY: 690},
	"catherby":   {MinX: 420, MaxX: 470, MinY: 480, MaxY: 530},
	"camelot":    {MinX: 480, MaxX: 560, MinY: 330, MaxY: 430},
	"ardougne":   {MinX: 520, MaxX: 580, MinY: 560, MaxY: 620},
	"yanille":    {MinX: 560, MaxX: 620, MinY: 720, MaxY: 780},
	"lostcity":   {MinX: 100, MaxX: 160, MinY: 3490, MaxY: 3550},
	"gnome":      {MinX: 680, MaxX: 740, MinY: 500, MaxY: 560},
	"tutorial":   {MinX: 190, MaxX: 250, MinY: 720, MaxY: 770},
	"spawn":      {MinX: 90, MaxX: 150, MinY: 410, MaxY: 470},
}

// Location looks up a named area; "seersvillage" is accepted for seers.
func Location(name string) (botapi.Area, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "seersvillage" {
		name = "seers"
	}
	a, ok := Locations[name]
	return a, ok
}

// Bones are the item ids the prayer script buries, in preference order.
var Bones = []int{20, 604, 413, 814}
