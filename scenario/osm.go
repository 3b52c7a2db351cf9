package scenario

import (
	"context"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmxml"
	"github.com/pkg/errors"

	"pathd.dev/pathd/geom"
)

const earthRadius = 6371000.0

// ImportOSMParam selects and shapes the imported way.
type ImportOSMParam struct {
	WayName      string  // match on the name tag; empty picks the longest road
	LaneWidth    float64 // synthesized corridor width
	DefaultSpeed float64 // used when the way has no usable maxspeed tag
}

func DefaultImportOSMParam() ImportOSMParam {
	return ImportOSMParam{
		LaneWidth:    4.0,
		DefaultSpeed: 8.0,
	}
}

// ImportOSM reads an OSM XML extract and turns one road way into a
// scenario: the way's nodes become the centerline in a local tangent
// plane, and the corridor bounds are synthesized at half a lane width to
// either side.
func ImportOSM(path string, p ImportOSMParam) (Scenario, error) {
	var s Scenario

	file, err := os.Open(path)
	if err != nil {
		return s, errors.Wrap(err, "could not open osm file")
	}
	defer file.Close()

	nodes := map[osm.NodeID]*osm.Node{}
	var ways []*osm.Way

	scanner := osmxml.New(context.Background(), file)
	defer scanner.Close()
	for scanner.Scan() {
		switch o := scanner.Object().(type) {
		case *osm.Node:
			nodes[o.ID] = o
		case *osm.Way:
			if len(o.Nodes) > 1 {
				ways = append(ways, o)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return s, errors.Wrap(err, "could not scan osm file")
	}

	way := selectWay(ways, nodes, p.WayName)
	if way == nil {
		return s, errors.New("could not find a usable road way in osm file")
	}

	tags := way.TagMap()
	speed := parseMaxSpeed(tags["maxspeed"])
	if speed <= 0 {
		speed = p.DefaultSpeed
	}

	center := projectWay(way, nodes)
	if len(center) < 2 {
		return s, errors.New("could not resolve enough way nodes")
	}

	poses := make([]geom.Pose, len(center))
	for i, pt := range center {
		var yaw float64
		if i+1 < len(center) {
			d := center[i+1].Subtract(pt)
			yaw = math.Atan2(d.Y, d.X)
		} else {
			yaw = poses[i-1].Yaw()
		}
		poses[i] = geom.PoseFromXYYaw(pt.X, pt.Y, yaw)
	}

	gen := GenerateParam{Velocity: speed, LaneWidth: p.LaneWidth}
	s = fromCenterline(wayDisplayName(tags, way), poses, gen)
	return s, nil
}

func wayDisplayName(tags map[string]string, way *osm.Way) string {
	if name := tags["name"]; name != "" {
		return name
	}
	return "osm way " + strconv.FormatInt(int64(way.ID), 10)
}

// selectWay returns the named way, or the road way with the greatest
// node-to-node length.
func selectWay(ways []*osm.Way, nodes map[osm.NodeID]*osm.Node, name string) *osm.Way {
	var best *osm.Way
	bestLength := 0.0
	for _, way := range ways {
		tags := way.TagMap()
		if name != "" {
			if tags["name"] == name {
				return way
			}
			continue
		}
		if tags["highway"] == "" {
			continue
		}
		length := wayLength(way, nodes)
		if length > bestLength {
			bestLength = length
			best = way
		}
	}
	return best
}

func wayLength(way *osm.Way, nodes map[osm.NodeID]*osm.Node) float64 {
	pts := projectWay(way, nodes)
	total := 0.0
	for i := 1; i < len(pts); i++ {
		total += pts[i].DistanceTo(pts[i-1])
	}
	return total
}

// projectWay maps the way's nodes onto a local tangent plane anchored at
// the first resolvable node. An equirectangular projection is accurate to
// well under a meter at scenario scale.
func projectWay(way *osm.Way, nodes map[osm.NodeID]*osm.Node) []geom.Point {
	pts := make([]geom.Point, 0, len(way.Nodes))
	var lat0, lon0, cosLat0 float64
	haveOrigin := false
	for _, wn := range way.Nodes {
		node, ok := nodes[wn.ID]
		if !ok {
			continue
		}
		if !haveOrigin {
			lat0 = node.Lat
			lon0 = node.Lon
			cosLat0 = math.Cos(lat0 * math.Pi / 180)
			haveOrigin = true
		}
		pts = append(pts, geom.Point{
			X: earthRadius * (node.Lon - lon0) * math.Pi / 180 * cosLat0,
			Y: earthRadius * (node.Lat - lat0) * math.Pi / 180,
		})
	}
	return pts
}

// parseMaxSpeed converts an OSM maxspeed tag to meters per second. Bare
// numbers are km/h per the OSM default.
func parseMaxSpeed(maxspeed string) float64 {
	splitSpeed := strings.Split(maxspeed, " ")
	if len(splitSpeed) == 0 {
		return 0
	}

	numeric, err := strconv.ParseUint(splitSpeed[0], 10, 64)
	if err != nil {
		return 0
	}

	if len(splitSpeed) == 1 {
		return 0.277778 * float64(numeric)
	}

	switch splitSpeed[1] {
	case "kph", "km/h", "kmh":
		return 0.277778 * float64(numeric)
	case "mph":
		return 0.44704 * float64(numeric)
	case "knots":
		return 0.514444 * float64(numeric)
	}

	return 0
}
