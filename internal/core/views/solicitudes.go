package views

import (
	"github.com/JonMunkholm/lexia/internal/core"
	"github.com/JonMunkholm/lexia/internal/tablequery"
)

func init() {
	registerSolicitudes()
}

const solicitudesQuery = `
SELECT s.id::text                                               AS id,
       s.alias                                                  AS nombre_descriptivo,
       s.tipo_busqueda                                          AS tipo_busqueda,
       CASE WHEN s.activa THEN 'activa' ELSE 'pausada' END      AS estado,
       s.activa                                                 AS activa,
       s.frecuencia_envio                                       AS frecuencia_envio,
       s.fecha_creacion                                         AS fecha_creacion,
       s.ultima_ejecucion                                       AS ultima_ejecucion,
       COUNT(r.id)                                              AS resultados_encontrados
FROM solicitudes_consulta s
LEFT JOIN resultados_consulta r ON r.solicitud_id = s.id
GROUP BY s.id`

func registerSolicitudes() {
	core.Register(core.ViewDefinition{
		Info: core.ViewInfo{
			Key:          "solicitudes",
			Group:        GroupMonitoreo,
			Label:        "Solicitudes",
			SearchFields: []string{"nombre_descriptivo", "tipo_busqueda", "estado"},
			DefaultSort: tablequery.SortSpec{
				Key:       "ultima_ejecucion",
				Direction: tablequery.Desc,
				Kind:      tablequery.KindDate,
			},
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "id", Label: "ID", Type: core.FieldText, Hidden: true},
			{Name: "nombre_descriptivo", Label: "Nombre", Type: core.FieldText},
			{Name: "tipo_busqueda", Label: "Tipo de búsqueda", Type: core.FieldEnum, EnumValues: []string{"radicado", "nombre"}},
			{Name: "estado", Label: "Estado", Type: core.FieldEnum, EnumValues: []string{"activa", "en_proceso", "pausada", "error", "completada"}, Display: core.DisplayBadge},
			{Name: "frecuencia_envio", Label: "Frecuencia", Type: core.FieldEnum, EnumValues: []string{"diaria", "diario", "semanal", "mensual", "manual"}},
			{Name: "resultados_encontrados", Label: "Resultados", Type: core.FieldNumeric},
			{Name: "ultima_ejecucion", Label: "Última ejecución", Type: core.FieldDate, Display: core.DisplayRelative},
			{Name: "fecha_creacion", Label: "Creada", Type: core.FieldDate},
			{Name: "activa", Label: "Activa", Type: core.FieldBool, Hidden: true},
		},
		Query: solicitudesQuery,
	})
}
