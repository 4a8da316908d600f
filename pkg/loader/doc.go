/*
Package loader reads declarative flow documents (YAML or JSON) into dsl definitions.

	name: orders
	start: NEW
	defaults:
	  - on: cancel
	    finish: CANCELLED
	subgraphs:
	  payment:
	    start: PAYING
	    transitions:
	      - on: paid
	        to: SHIPPING
	        transit:
	          - emit: shipped
	transitions:
	  - on: confirm
	    subgraph: payment
	    transit:
	      - on: shipped
	        to: DELIVERING
	        transit:
	          - on: delivered
	            finish: DONE

Every edge names its events with "on" (a string, a comma separated string or a list)
and exactly one of "to", "finish", "back_to", "subgraph" or "emit". The "transit" list
continues the destination, or lists the exits of an embedded sub-graph.
*/
package loader
