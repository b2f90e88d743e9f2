// Package food defines the catalog record and its comma separated wire and
// file representation.
//
// A serialized record has seven fields:
//
//	name,measure,weight,kcal,fat,carbo,protein
//
// The name may itself contain commas ("Milk,Whole,3.3% Fat"). Deserialize
// reads the five integers and the measure from the end of the line and
// re-joins every remaining token into the name.
package food
