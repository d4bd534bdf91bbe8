// Package xmlformat reads and writes workouts as XML documents.
//
//	<workouts>
//	  <workout>
//	    <name>Push</name>
//	    <archived>false</archived>
//	    <parts>
//	      <exercise><name>Bench</name><sets><set><reps>8</reps><weight>60</weight><rest>90</rest></set></sets></exercise>
//	      <rest>120</rest>
//	      <circuit><exercises>...</exercises></circuit>
//	      <choice><exercises>...</exercises></choice>
//	    </parts>
//	  </workout>
//	</workouts>
//
// Durations are whole seconds. Older files mark circuit members with
// <isCircuit>true</isCircuit> on consecutive root exercises instead of a
// <circuit> wrapper; they are upgraded on import.
package xmlformat

import "encoding/xml"

const (
	elemWorkouts = "workouts"
	elemWorkout  = "workout"
	elemExercise = "exercise"
	elemRest     = "rest"
	elemCircuit  = "circuit"
	elemChoice   = "choice"
)

type xmlDocument struct {
	XMLName  xml.Name     `xml:"workouts"`
	Workouts []xmlWorkout `xml:"workout"`
}

type xmlWorkout struct {
	XMLName  xml.Name `xml:"workout"`
	Name     string   `xml:"name"`
	Archived bool     `xml:"archived"`
	Parts    xmlParts `xml:"parts"`
}

// xmlParts is an ordered list of mixed part elements, told apart by XMLName.
type xmlParts struct {
	Items []xmlPart `xml:",any"`
}

type xmlPart struct {
	XMLName xml.Name
	// Seconds is the character data of a <rest> element.
	Seconds        string    `xml:",chardata"`
	Name           string    `xml:"name,omitempty"`
	HasCircuitRest *bool     `xml:"hasCircuitRest,omitempty"`
	IsCircuit      *bool     `xml:"isCircuit,omitempty"`
	Sets           *xmlSets  `xml:"sets,omitempty"`
	Exercises      *xmlParts `xml:"exercises,omitempty"`
}

type xmlSets struct {
	Items []xmlSet `xml:"set"`
}

type xmlSet struct {
	Reps   int32   `xml:"reps"`
	Weight float64 `xml:"weight"`
	Rest   int     `xml:"rest"`
}

func (p xmlPart) kind() string { return p.XMLName.Local }
