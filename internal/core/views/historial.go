package views

import (
	"github.com/JonMunkholm/lexia/internal/core"
	"github.com/JonMunkholm/lexia/internal/tablequery"
)

func init() {
	registerHistorial()
}

const historialQuery = `
SELECT r.id::text                   AS id,
       s.alias                      AS solicitud_alias,
       r.fecha_ejecucion            AS fecha_ejecucion,
       r.numero_radicado_completo   AS numero_radicado_completo,
       r.despacho_juzgado           AS despacho_juzgado,
       r.fecha_ultimo_auto          AS fecha_ultimo_auto,
       r.estado_extraccion          AS estado_extraccion
FROM resultados_consulta r
JOIN solicitudes_consulta s ON s.id = r.solicitud_id`

func registerHistorial() {
	core.Register(core.ViewDefinition{
		Info: core.ViewInfo{
			Key:   "historial",
			Group: GroupMonitoreo,
			Label: "Historial",
			SearchFields: []string{
				"solicitud_alias",
				"numero_radicado_completo",
				"despacho_juzgado",
				"estado_extraccion",
			},
			DefaultSort: tablequery.SortSpec{
				Key:       "fecha_ejecucion",
				Direction: tablequery.Desc,
				Kind:      tablequery.KindDate,
			},
			PageSize: 20,
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "id", Label: "ID", Type: core.FieldText, Hidden: true},
			{Name: "solicitud_alias", Label: "Solicitud", Type: core.FieldText},
			{Name: "fecha_ejecucion", Label: "Fecha de consulta", Type: core.FieldDate},
			{Name: "numero_radicado_completo", Label: "Radicado", Type: core.FieldText},
			{Name: "despacho_juzgado", Label: "Despacho", Type: core.FieldText, Display: core.DisplayTruncate},
			{Name: "fecha_ultimo_auto", Label: "Último auto", Type: core.FieldDate, Display: core.DisplayDateOnly},
			{Name: "estado_extraccion", Label: "Estado", Type: core.FieldEnum, EnumValues: []string{"exitoso", "pendiente", "error_captcha", "error_sistema"}, Display: core.DisplayBadge},
		},
		Query: historialQuery,
	})
}
