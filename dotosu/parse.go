// Package dotosu decodes .osu files into source beatmaps ready for conversion.
package dotosu

import (
	"bufio"
	"bytes"
	"cmp"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"osuconv/beatmap"
	"osuconv/curve"
	"osuconv/hitsample"
	"osuconv/logging"
	"osuconv/objects"
	"osuconv/sliderpath"
	"osuconv/timing"
	"osuconv/vector"
)

const (
	EARLY_VERSION_TIMING_OFFSET = 24
	MAX_REPEAT_COUNT            = 9000
	LATEST_VERSION              = 14
)

var (
	ErrInvalidHeader   = errors.New("invalid .osu header")
	ErrUnsupportedMode = errors.New("unsupported ruleset")
	ErrInvalidObject   = errors.New("invalid hit object")
)

// playfield centre, where spinners sit
var spinnerPosition = vector.New(256, 192)

type section int

const (
	secNone section = iota
	secGeneral
	secMetadata
	secDifficulty
	secTimingPoints
	secHitObjects
)

type HitObjectTypeFlags int

const (
	TypeCircle     HitObjectTypeFlags = 1 << iota // 1
	TypeSlider                                    // 2
	TypeNewCombo                                  // 4
	TypeSpinner                                   // 8
	TypeComboSkip1                                // 16
	TypeComboSkip2                                // 32
	TypeComboSkip3                                // 64
	TypeHold       HitObjectTypeFlags = 1 << 7    // 128

	typeComboOffset = TypeComboSkip1 | TypeComboSkip2 | TypeComboSkip3
)

type HitSoundFlags uint8

const (
	HitSoundNormal  HitSoundFlags = 1 << iota // 1
	HitSoundWhistle                           // 2
	HitSoundFinish                            // 4
	HitSoundClap                              // 8
)

// bankInfo is the bank part of a hit sample field.
type bankInfo struct {
	Normal   string
	Addition string
	Index    int
	Volume   int
	Filename string
}

// decoder carries the state that spans lines.
type decoder struct {
	b           *beatmap.Beatmap
	offset      float64
	defaultBank string
	seenAR      bool

	// the object after a spinner starts a new combo
	forceNewCombo    bool
	extraComboOffset int
	firstObject      bool
}

// ---------- Public API ----------

func DecodeFile(path string) (*beatmap.Beatmap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	b, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// Decode reads a whole .osu file. Metadata.MD5 is the checksum of the raw
// bytes. Hit objects are returned sorted by start time.
func Decode(r io.Reader) (*beatmap.Beatmap, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	sum := md5.Sum(raw)

	sc := bufio.NewScanner(bytes.NewReader(raw))
	const maxLine = 1024 * 1024
	buf := make([]byte, 64*1024)
	sc.Buffer(buf, maxLine)

	// header
	var header string
	for sc.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(sc.Text(), "\ufeff"))
		if line == "" {
			continue
		}
		header = line
		break
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(strings.ToLower(header), "osu file format v") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidHeader, header)
	}
	versionStr := strings.TrimSpace(header[len("osu file format v"):])
	formatVersion, err := strconv.Atoi(versionStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidHeader, header, err)
	}

	d := &decoder{
		b:           beatmap.New(),
		defaultBank: hitsample.BankNormal,
		firstObject: true,
	}
	d.b.FormatVersion = formatVersion
	d.b.Metadata.MD5 = hex.EncodeToString(sum[:])
	if formatVersion < 5 {
		d.offset = EARLY_VERSION_TIMING_OFFSET
	}

	sec := secNone
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			switch strings.ToLower(line) {
			case "[general]":
				sec = secGeneral
			case "[metadata]":
				sec = secMetadata
			case "[difficulty]":
				sec = secDifficulty
			case "[timingpoints]":
				sec = secTimingPoints
			case "[hitobjects]":
				sec = secHitObjects
			default:
				sec = secNone
			}
			continue
		}

		switch sec {
		case secGeneral:
			if err := d.general(line); err != nil {
				return nil, err
			}
		case secMetadata:
			d.metadata(line)
		case secDifficulty:
			d.difficulty(line)
		case secTimingPoints:
			d.timingPoint(line)
		case secHitObjects:
			if err := d.hitObject(line); err != nil {
				return nil, err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	d.b.Difficulty.Clamp()
	slices.SortStableFunc(d.b.HitObjects, func(a, b objects.HitObject) int {
		return cmp.Compare(a.Common().StartTime, b.Common().StartTime)
	})

	logging.Logger().Debug("decoded beatmap",
		"version", d.b.Metadata.Version, "format", formatVersion,
		"objects", len(d.b.HitObjects), "timing", len(d.b.ControlPoints.Timing))
	return d.b, nil
}

// ---------- sections ----------

func (d *decoder) general(line string) error {
	k, v := splitKeyVal(line)
	switch strings.ToLower(k) {
	case "sampleset":
		if bank := strings.ToLower(v); bank != "none" {
			d.defaultBank = bank
		}
	case "stackleniency":
		d.b.StackLeniency = parseFloat(v, 0.7)
	case "mode":
		if mode := parseInt(v, 0); mode != 0 {
			return fmt.Errorf("%w: mode %d", ErrUnsupportedMode, mode)
		}
	}
	return nil
}

func (d *decoder) metadata(line string) {
	k, v := splitKeyVal(line)
	m := &d.b.Metadata
	switch strings.ToLower(k) {
	case "title":
		m.Title = v
	case "artist":
		m.Artist = v
	case "creator":
		m.Creator = v
	case "version":
		m.Version = v
	case "beatmapid":
		m.BeatmapID = parseInt(v, 0)
	case "beatmapsetid":
		m.BeatmapSetID = parseInt(v, 0)
	}
}

func (d *decoder) difficulty(line string) {
	k, v := splitKeyVal(line)
	diff := &d.b.Difficulty
	switch strings.ToLower(k) {
	case "hpdrainrate":
		diff.DrainRate = parseFloat(v, 5)
	case "circlesize":
		diff.CircleSize = parseFloat(v, 5)
	case "overalldifficulty":
		diff.OverallDifficulty = parseFloat(v, 5)
		if !d.seenAR {
			diff.ApproachRate = diff.OverallDifficulty
		}
	case "approachrate":
		diff.ApproachRate = parseFloat(v, 5)
		d.seenAR = true
	case "slidermultiplier":
		diff.SliderMultiplier = parseFloat(v, 1.4)
	case "slidertickrate":
		diff.SliderTickRate = parseFloat(v, 1)
	}
}

// timingPoint adds a red or green line. Every line also carries sample and
// effect state; red lines reset the slider velocity.
func (d *decoder) timingPoint(line string) {
	parts := splitCSV(line)
	if len(parts) < 2 {
		return
	}
	t := parseFloat(parts[0], 0) + d.offset
	beatLen := parseFloatAllowNaN(parts[1])
	meter := 4
	if len(parts) >= 3 {
		meter = parseInt(parts[2], 4)
		if meter <= 0 {
			meter = 4
		}
	}
	bank := d.defaultBank
	if len(parts) >= 4 {
		if b := normaliseSampleSet(parseInt(parts[3], 0)); b != hitsample.BankNone {
			bank = b
		}
	}
	custom := 0
	if len(parts) >= 5 {
		custom = parseInt(parts[4], 0)
	}
	sampleVol := 100
	if len(parts) >= 6 {
		sampleVol = parseInt(parts[5], 100)
	}
	timingChange := true
	if len(parts) >= 7 {
		timingChange = strings.TrimSpace(parts[6]) == "1"
	}
	kiai, omitFirstBar := false, false
	if len(parts) >= 8 {
		e := parseInt(parts[7], 0)
		kiai = e&1 != 0
		omitFirstBar = e&8 != 0
	}

	sv, rawBeatLen := 1.0, 0.0
	if !math.IsNaN(beatLen) && beatLen < 0 {
		sv, rawBeatLen = 100.0 / -beatLen, beatLen
	}

	cp := d.b.ControlPoints
	if timingChange {
		if math.IsNaN(beatLen) || beatLen <= 0 {
			logging.Logger().Debug("skipping red line", "time", t, "beatLength", parts[1])
		} else {
			cp.AddTiming(timing.TimingPoint{Time: t, BeatLength: beatLen, TimeSignature: meter})
		}
		sv, rawBeatLen = 1, 0
	}
	cp.AddDifficulty(timing.DifficultyPoint{Time: t, SpeedMultiplier: sv, BeatLength: rawBeatLen, GenerateTicks: !math.IsNaN(beatLen)})
	cp.AddSample(timing.SamplePoint{Time: t, Bank: bank, Volume: sampleVol, CustomIndex: custom})
	cp.AddEffect(timing.EffectPoint{Time: t, Kiai: kiai, OmitFirstBarLine: omitFirstBar})
}

func (d *decoder) hitObject(line string) error {
	parts := splitCSV(line)
	if len(parts) < 5 {
		return nil
	}
	pos := vector.New(parseCoord(parts[0]), parseCoord(parts[1]))
	t := parseFloat(parts[2], 0) + d.offset
	flags := HitObjectTypeFlags(parseInt(parts[3], 0))
	hs := HitSoundFlags(parseInt(parts[4], 0))

	newCombo := flags&TypeNewCombo != 0
	comboOffset := int(flags&typeComboOffset) >> 4

	var o objects.HitObject
	switch {
	case flags&TypeHold != 0:
		return fmt.Errorf("%w at %v: hold notes are mania only", ErrInvalidObject, t)

	case flags&TypeSpinner != 0:
		end := t
		if len(parts) >= 6 && strings.TrimSpace(parts[5]) != "" {
			end = max(parseFloat(parts[5], 0)+d.offset, t)
		}
		var bi bankInfo
		if len(parts) >= 7 {
			bi = parseHitSample(parts[6])
		}
		o = objects.NewSpinner(t, end, spinnerPosition, convertSoundType(hs, bi))

		// spinners never start combos themselves
		d.forceNewCombo = d.forceNewCombo || d.b.FormatVersion <= 8 || newCombo
		d.extraComboOffset += comboOffset
		d.b.HitObjects = append(d.b.HitObjects, o)
		return nil

	case flags&TypeSlider != 0:
		s, err := d.slider(pos, t, hs, parts)
		if err != nil {
			return err
		}
		o = s

	default:
		var bi bankInfo
		if len(parts) >= 6 {
			bi = parseHitSample(parts[5])
		}
		o = objects.NewCircle(t, pos, convertSoundType(hs, bi))
	}

	base := o.Common()
	base.NewCombo = newCombo || d.forceNewCombo || d.firstObject
	base.ComboOffset = comboOffset + d.extraComboOffset
	d.forceNewCombo = false
	d.extraComboOffset = 0
	d.firstObject = false

	d.b.HitObjects = append(d.b.HitObjects, o)
	return nil
}

// slider parses "x,y,time,type,hitSound,curveType|x:y|...,slides,length,edgeSounds,edgeSets,hitSample".
func (d *decoder) slider(pos vector.Vector2, t float64, hs HitSoundFlags, parts []string) (*objects.Slider, error) {
	var pathSpec string
	if len(parts) >= 6 {
		pathSpec = parts[5]
	}
	slides := 1
	if len(parts) >= 7 && strings.TrimSpace(parts[6]) != "" {
		slides = parseInt(parts[6], 1)
	}
	if slides > MAX_REPEAT_COUNT {
		return nil, fmt.Errorf("%w at %v: %d slides", ErrInvalidObject, t, slides)
	}
	repeats := max(slides-1, 0)

	length := math.NaN()
	if len(parts) >= 8 && strings.TrimSpace(parts[7]) != "" {
		if l := parseFloat(parts[7], 0); l > 0 {
			length = l
		}
	}

	var bi bankInfo
	if len(parts) >= 11 {
		bi = parseHitSample(parts[10])
	}

	nodes := repeats + 2
	nodeSounds := make([]HitSoundFlags, nodes)
	for i := range nodeSounds {
		nodeSounds[i] = hs
	}
	if len(parts) >= 9 && strings.TrimSpace(parts[8]) != "" {
		for i, n := range strings.Split(parts[8], "|") {
			if i >= nodes {
				break
			}
			nodeSounds[i] = HitSoundFlags(parseInt(n, 0))
		}
	}
	nodeBanks := make([]bankInfo, nodes)
	for i := range nodeBanks {
		nodeBanks[i] = bi
	}
	if len(parts) >= 10 && strings.TrimSpace(parts[9]) != "" {
		for i, p := range strings.Split(parts[9], "|") {
			if i >= nodes {
				break
			}
			normal, addition := parseEdgeAddPair(p)
			if normal != hitsample.BankNone {
				nodeBanks[i].Normal = normal
			}
			if addition != hitsample.BankNone {
				nodeBanks[i].Addition = addition
			}
		}
	}
	nodeSamples := make([][]hitsample.Info, nodes)
	for i := range nodeSamples {
		nodeSamples[i] = convertSoundType(nodeSounds[i], nodeBanks[i])
	}

	pathType, anchors := parseSliderPath(pos, pathSpec)
	path := sliderpath.New(pathType, anchors, length)
	return objects.NewSlider(t, pos, path, repeats, convertSoundType(hs, bi), nodeSamples), nil
}

// ---------- parsing helpers ----------

func splitKeyVal(line string) (key, val string) {
	i := strings.Index(line, ":")
	if i < 0 {
		return strings.TrimSpace(line), ""
	}
	return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:])
}

func parseInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
func parseFloat(s string, def float64) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}
func parseFloatAllowNaN(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// parseCoord truncates a coordinate to whole osu!pixels like stable does.
func parseCoord(s string) float64 { return math.Trunc(parseFloat(s, 0)) }

func splitCSV(line string) []string {
	var out []string
	var cur strings.Builder
	inQ := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch c {
		case '"':
			inQ = !inQ
		case ',':
			if inQ {
				cur.WriteByte(c)
			} else {
				out = append(out, strings.TrimSpace(cur.String()))
				cur.Reset()
			}
		default:
			cur.WriteByte(c)
		}
	}
	out = append(out, strings.TrimSpace(cur.String()))
	return out
}

func normaliseSampleSet(id int) string {
	switch id {
	case 1:
		return hitsample.BankNormal
	case 2:
		return hitsample.BankSoft
	case 3:
		return hitsample.BankDrum
	default:
		return hitsample.BankNone
	}
}

// parseHitSample reads "normalSet:additionSet:customIndex:volume:filename".
func parseHitSample(s string) bankInfo {
	parts := strings.Split(s, ":")
	get := func(i int) string {
		if i < len(parts) {
			return parts[i]
		}
		return ""
	}
	bi := bankInfo{
		Normal:   normaliseSampleSet(parseInt(get(0), 0)),
		Addition: normaliseSampleSet(parseInt(get(1), 0)),
		Index:    parseInt(get(2), 0),
		Volume:   parseInt(get(3), 0),
	}
	bi.Filename = strings.Trim(strings.TrimSpace(get(4)), "\"")
	return bi
}

// parseEdgeAddPair reads a slider node's "normalSet:additionSet".
func parseEdgeAddPair(s string) (normal, addition string) {
	p := strings.Split(s, ":")
	var a, b int
	if len(p) >= 1 {
		a = parseInt(p[0], 0)
	}
	if len(p) >= 2 {
		b = parseInt(p[1], 0)
	}
	return normaliseSampleSet(a), normaliseSampleSet(b)
}

// convertSoundType turns hitsound flags and bank info into samples. A
// custom filename replaces every bank sample. A missing bank is left empty
// and marked as automatic so the sample point fills it in.
func convertSoundType(hs HitSoundFlags, bi bankInfo) []hitsample.Info {
	if bi.Filename != "" {
		return []hitsample.Info{hitsample.FileSample{Filename: bi.Filename, Volume: bi.Volume}}
	}

	normal := hitsample.BankSample{
		Name:           hitsample.Normal,
		Bank:           bi.Normal,
		CustomIndex:    bi.Index,
		Volume:         bi.Volume,
		EditorAutoBank: bi.Normal == hitsample.BankNone,
	}
	if bi.Index > 1 {
		normal.Suffix = strconv.Itoa(bi.Index)
	}
	out := []hitsample.Info{normal}

	addition := normal
	if bi.Addition != hitsample.BankNone {
		addition.Bank = bi.Addition
		addition.EditorAutoBank = false
	}
	if hs&HitSoundWhistle != 0 {
		out = append(out, addition.With(hitsample.Whistle))
	}
	if hs&HitSoundFinish != 0 {
		out = append(out, addition.With(hitsample.Finish))
	}
	if hs&HitSoundClap != 0 {
		out = append(out, addition.With(hitsample.Clap))
	}
	return out
}

// parseSliderPath converts "B|x:y|x:y|..." into a path type and anchors
// relative to the slider head. The head is the first anchor. Repeated
// points are kept; the path treats them as hard corners.
func parseSliderPath(head vector.Vector2, spec string) (curve.PathType, []vector.Vector2) {
	anchors := []vector.Vector2{vector.New(0, 0)}
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return curve.Bezier, anchors
	}

	// Type is first token up to first '|'
	typeStr, rest, _ := strings.Cut(spec, "|")
	var pType curve.PathType
	switch strings.ToUpper(strings.TrimSpace(typeStr)) {
	case "L":
		pType = curve.Linear
	case "C":
		pType = curve.Catmull
	case "P":
		pType = curve.PerfectCurve
	default:
		pType = curve.Bezier
	}

	if strings.TrimSpace(rest) != "" {
		for _, t := range strings.Split(rest, "|") {
			xs, ys, ok := strings.Cut(strings.TrimSpace(t), ":")
			if !ok {
				continue
			}
			p := vector.New(parseCoord(xs), parseCoord(ys))
			anchors = append(anchors, p.Sub(head))
		}
	}

	// a perfect curve needs exactly three points
	if pType == curve.PerfectCurve && len(anchors) != 3 {
		pType = curve.Bezier
	}
	return pType, anchors
}
