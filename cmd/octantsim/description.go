package main

import (
	"math/rand/v2"
	"os"

	"github.com/akmonengine/octant"
	"github.com/akmonengine/octant/actor"
	"github.com/akmonengine/octant/ground"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

const (
	errTypeInvalidDescription = "invalid-scene-description"
)

// description is the YAML file describing a scene
type description struct {
	Boundary float64             `yaml:"boundary"`
	Gravity  []float64           `yaml:"gravity"`
	Seed     uint64              `yaml:"seed"`
	Ground   groundDescription   `yaml:"ground"`
	Entities []entityDescription `yaml:"entities"`
}

type groundDescription struct {
	// Type is "plane", "heightmap" or empty for no ground
	Type      string  `yaml:"type"`
	Height    float64 `yaml:"height"`
	Cols      int     `yaml:"cols"`
	Rows      int     `yaml:"rows"`
	CellSize  float64 `yaml:"cell_size"`
	Seed      uint32  `yaml:"seed"`
	Amplitude float64 `yaml:"amplitude"`
	Period    int     `yaml:"period"`
}

type entityDescription struct {
	Name string `yaml:"name"`
	// Shape is "box", "sphere" or "point"
	Shape      string    `yaml:"shape"`
	Size       float64   `yaml:"size"`
	Position   []float64 `yaml:"position"`
	Velocity   []float64 `yaml:"velocity"`
	Movable    bool      `yaml:"movable"`
	Mass       float64   `yaml:"mass"`
	Bounciness *float64  `yaml:"bounciness"`
	Renderable bool      `yaml:"renderable"`
	Deflector  *bool     `yaml:"deflector"`
	// Count spawns copies scattered around Position within Spread
	Count  int     `yaml:"count"`
	Spread float64 `yaml:"spread"`
}

func loadDescription(path string) (description, error) {
	var d description

	f, err := os.Open(path)
	if err != nil {
		return d, errors.New("opening scene description failed").
			WithTag("path", path).
			Wrap(err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&d); err != nil {
		return d, errors.New("decoding scene description failed").
			WithType(errTypeInvalidDescription).
			WithTag("path", path).
			Wrap(err)
	}
	return d, nil
}

// defaultDescription is a noisy terrain with a rain of boxes and spheres
func defaultDescription(boundary float64) description {
	bounciness := 0.4
	return description{
		Boundary: boundary,
		Seed:     7,
		Ground: groundDescription{
			Type:      "heightmap",
			Cols:      33,
			Rows:      33,
			CellSize:  boundary * 2 / 32,
			Seed:      42,
			Amplitude: boundary / 20,
			Period:    4,
		},
		Entities: []entityDescription{
			{Name: "pillar", Shape: "box", Size: boundary / 20, Position: []float64{0, 0, 0}, Renderable: true},
			{Name: "ball", Shape: "sphere", Size: 1, Position: []float64{0, boundary / 2, 0}, Movable: true, Mass: 1, Renderable: true, Count: 200, Spread: boundary * 0.8},
			{Name: "crate", Shape: "box", Size: 1.5, Position: []float64{0, boundary / 2, 0}, Movable: true, Mass: 4, Bounciness: &bounciness, Renderable: true, Count: 100, Spread: boundary * 0.8},
			{Name: "marker", Shape: "point", Position: []float64{0, 0, 0}, Renderable: true, Count: 50, Spread: boundary},
		},
	}
}

func vec3(values []float64, fallback mgl64.Vec3) (mgl64.Vec3, error) {
	switch len(values) {
	case 0:
		return fallback, nil
	case 3:
		return mgl64.Vec3{values[0], values[1], values[2]}, nil
	default:
		return mgl64.Vec3{}, errors.New("vector must have 3 components").
			WithType(errTypeInvalidDescription).
			WithTag("components", len(values))
	}
}

func (d description) ground() (ground.Ground, error) {
	switch d.Ground.Type {
	case "":
		return nil, nil
	case "plane":
		return ground.NewFlatPlane(d.Ground.Height), nil
	case "heightmap":
		hm := ground.NewHeightMap(d.Ground.Cols, d.Ground.Rows, d.Ground.CellSize)
		hm.GenerateNoise(d.Ground.Seed, d.Ground.Amplitude, d.Ground.Period)
		for i := range hm.Heights {
			hm.Heights[i] += d.Ground.Height
		}
		return hm, nil
	default:
		return nil, errors.New("unknown ground type").
			WithType(errTypeInvalidDescription).
			WithTag("type", d.Ground.Type)
	}
}

// entities expands the description into scene entities
func (d description) entities() ([]*actor.Entity, error) {
	rng := rand.New(rand.NewPCG(d.Seed, d.Seed^0x9e3779b97f4a7c15))

	var entities []*actor.Entity
	for _, ed := range d.Entities {
		position, err := vec3(ed.Position, mgl64.Vec3{})
		if err != nil {
			return nil, errors.New("invalid entity position").
				WithType(errTypeInvalidDescription).
				WithTag("entity", ed.Name).
				Wrap(err)
		}
		velocity, err := vec3(ed.Velocity, mgl64.Vec3{})
		if err != nil {
			return nil, errors.New("invalid entity velocity").
				WithType(errTypeInvalidDescription).
				WithTag("entity", ed.Name).
				Wrap(err)
		}

		for i := 0; i < max(1, ed.Count); i++ {
			p := position
			if ed.Spread > 0 {
				p = p.Add(mgl64.Vec3{
					(rng.Float64()*2 - 1) * ed.Spread,
					rng.Float64() * ed.Spread * 0.25,
					(rng.Float64()*2 - 1) * ed.Spread,
				})
			}

			e, err := newEntity(ed, p)
			if err != nil {
				return nil, err
			}

			if ed.Movable {
				m := actor.NewMovable(ed.Mass)
				m.Velocity = velocity
				if ed.Bounciness != nil {
					m.Bounciness = *ed.Bounciness
				}
				e.SetMovable(m)
			}
			entities = append(entities, e)
		}
	}
	return entities, nil
}

func newEntity(ed entityDescription, position mgl64.Vec3) (*actor.Entity, error) {
	var e *actor.Entity

	switch ed.Shape {
	case "box", "":
		e = actor.NewEntity(ed.Name, position, actor.CubeAABB(mgl64.Vec3{}, ed.Size))
	case "sphere":
		e = actor.NewSphereEntity(ed.Name, position, ed.Size)
	case "point":
		e = actor.NewPointEntity(ed.Name, position)
	default:
		return nil, errors.New("unknown entity shape").
			WithType(errTypeInvalidDescription).
			WithTag("entity", ed.Name).
			WithTag("shape", ed.Shape)
	}

	e.Renderable = ed.Renderable
	if ed.Deflector != nil {
		e.Deflector = *ed.Deflector
	} else if ed.Shape == "point" {
		e.Deflector = false
	}
	return e, nil
}

// build creates the scene and adds every entity it can
func (d description) build(config octant.SceneConfig) (*octant.Scene, error) {
	gravity, err := vec3(d.Gravity, config.Gravity)
	if err != nil {
		return nil, errors.New("invalid gravity").
			WithType(errTypeInvalidDescription).
			Wrap(err)
	}
	config.Gravity = gravity

	g, err := d.ground()
	if err != nil {
		return nil, err
	}

	entities, err := d.entities()
	if err != nil {
		return nil, err
	}

	scene := octant.NewScene(config, g)
	for _, e := range entities {
		if err := scene.AddEntity(e); err != nil {
			return nil, errors.New("adding entity failed").
				WithTag("entity", e.Name).
				Wrap(err)
		}
	}
	return scene, nil
}
